// Package classify assigns a category to each inventoried image.
//
// The only built-in classifier is a screenshot heuristic that scores
// three signals: filename patterns left by capture tools, pixel
// dimensions that match known screen sizes, and the presence or
// absence of camera metadata. Scores are combined with fixed weights
// and anything above the screenshot threshold is categorized as a
// screenshot; everything else is a photo. External classifiers (for
// example an ML model behind an API) can replace the heuristic by
// implementing the Classifier interface.
package classify
