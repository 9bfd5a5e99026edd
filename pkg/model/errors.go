package model

import "errors"

var (
	// ErrInvalidFeature reports a feature that is not part of the object's class.
	ErrInvalidFeature = errors.New("feature does not belong to class")
	// ErrNotChangeable reports a write to an unchangeable feature.
	ErrNotChangeable = errors.New("feature is not changeable")
	// ErrInvalidValue reports a value whose type does not match the feature type.
	ErrInvalidValue = errors.New("value does not conform to feature type")
	// ErrInvalidOperation reports an operation that is not part of the object's class.
	ErrInvalidOperation = errors.New("operation does not belong to class")
	// ErrAbstractClass reports an attempt to instantiate an abstract class.
	ErrAbstractClass = errors.New("class is abstract")
	// ErrIndexOutOfRange reports a list position outside the list bounds.
	ErrIndexOutOfRange = errors.New("index out of range")
)
