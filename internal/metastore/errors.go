package metastore

import "github.com/Embucket/embucket-sub001/internal/apierr"

// NotFound, AlreadyExists, Validation, ObjectInUse, and opaque Backend
// are the metastore's failure taxonomy (spec §4.1), expressed in terms
// of the shared apierr.Kind so REST handlers map them without a second
// translation table.

func ErrNotFound(entity, name string) error {
	return apierr.EntityNotFound(entity, name)
}

func ErrAlreadyExists(entity, name string) error {
	return apierr.New(apierr.KindAlreadyExists, entity+" "+name+" already exists")
}

func ErrValidation(message string) error {
	return apierr.New(apierr.KindValidation, message)
}

func ErrObjectInUse(entity, name string) error {
	return apierr.New(apierr.KindObjectInUse, entity+" "+name+" is in use and cannot be deleted")
}

func ErrBackend(err error) error {
	return apierr.Wrap(apierr.KindBackend, "metastore backend error", err)
}
