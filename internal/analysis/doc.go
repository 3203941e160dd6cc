// Package analysis connects the library store to the LLM.
//
// Analyzer describes images with a vision model, stores the description and
// tags, and can move the file to the model's suggested name. BoardClassifier
// and Organizer feed stored images through the suggestion engine so that
// board placements land in the same store.
package analysis
