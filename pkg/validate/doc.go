// Package validate evaluates per-field validation rules against an entity
// snapshot and aggregates the failures into a field-keyed Result.
//
// Rules map a field name to a set of named validators, each with its own
// options. Every option set carries a "message" that is reported when the
// validator fails:
//
//	rules := validate.Rules{
//		"email":    {"empty": {"message": "email is required"}},
//		"password": {"password": {"message": "needs a letter and a digit"}},
//	}
//
// A nil Result means the source is valid. Unknown validator names are
// configuration errors and abort the evaluation with ErrUnknownValidator.
package validate
