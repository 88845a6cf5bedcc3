package registry

import (
	"fmt"

	"go.uber.org/multierr"

	"github.com/anirudhraja/protocodec/schema"
	"github.com/anirudhraja/protocodec/wire"
)

// validateMessage checks field numbers and names of a single message. Nested
// types are validated by their own call. Errors follow field number order.
func validateMessage(fullName string, msg *schema.Message) error {
	var errs error
	numbers := make(map[int32]string)
	names := make(map[string]struct{})

	for _, field := range msg.SortedFields() {
		switch number := wire.FieldNumber(field.Number); {
		case !number.IsValid():
			errs = multierr.Append(errs, fmt.Errorf("%s.%s: field number %d out of range", fullName, field.Name, field.Number))
		case number.IsReserved():
			errs = multierr.Append(errs, fmt.Errorf("%s.%s: field number %d is reserved for the protobuf implementation", fullName, field.Name, field.Number))
		}

		if other, ok := numbers[field.Number]; ok {
			errs = multierr.Append(errs, fmt.Errorf("%s: fields %s and %s share number %d", fullName, other, field.Name, field.Number))
		} else {
			numbers[field.Number] = field.Name
		}

		if _, ok := names[field.Name]; ok {
			errs = multierr.Append(errs, fmt.Errorf("%s: duplicate field name %s", fullName, field.Name))
		}
		names[field.Name] = struct{}{}
	}
	return errs
}

// validateEnum rejects empty enums and, unless allow_alias is set, values
// sharing a number.
func validateEnum(fullName string, enum *schema.Enum) error {
	if len(enum.Values) == 0 {
		return fmt.Errorf("enum %s has no values", fullName)
	}

	var errs error
	numbers := make(map[int32]string)
	names := make(map[string]struct{})
	for _, v := range enum.Values {
		if _, ok := names[v.Name]; ok {
			errs = multierr.Append(errs, fmt.Errorf("enum %s: duplicate value name %s", fullName, v.Name))
		}
		names[v.Name] = struct{}{}

		if other, ok := numbers[v.Number]; ok && !enum.AllowAlias {
			errs = multierr.Append(errs, fmt.Errorf("enum %s: %s and %s share number %d without allow_alias", fullName, other, v.Name, v.Number))
			continue
		}
		numbers[v.Number] = v.Name
	}
	return errs
}
