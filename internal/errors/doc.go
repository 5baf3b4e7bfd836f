// Package errors provides structured, coded errors for chatui.
//
// Every misuse the core can detect has a registered code that maps to a
// category, a short message, a longer explanation and a documentation
// link. Storage engine failures are not normalized into codes: they are
// returned unchanged so callers can inspect them with errors.As.
//
// # Error Categories
//
//   - validation: component configuration and children shapes
//   - storage: connection state and open arguments
//   - config: chatui.json loading and validation
//   - protocol: chat transport and model backends
//   - cli: command line usage
//
// # Usage
//
//	err := errors.New("E100").
//	    WithDetail(`"style" must be a map of property to value`).
//	    WithSuggestion("Pass el.Style(map[string]string{...}) instead")
//
//	fmt.Println(err.Format())
//
// Codes compare with the standard library:
//
//	if stderrors.Is(err, errors.New("E110")) { ... }
package errors
