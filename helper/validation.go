package helper

import (
	"fmt"
	"reflect"
	"strings"
)

// ValidateStructIsPopulated will check if any mandatory fields in cfg are missing.
// It uses struct tags to determine which fields are mandatory and the error text to fetch.
// The error text returned is just a list of the struct tags with key "errorTxt".
func ValidateStructIsPopulated(cfg interface{}) (err error) {
	errs := make([]string, 0)
	GetStructErrorTxt4UnsetFields(cfg, &errs)
	if len(errs) > 0 {
		err = fmt.Errorf("please supply values for %v", strings.Join(errs, ", "))
	}
	return
}

// GetStructErrorTxt4UnsetFields will reflect over interface i and build a slice containing error text strings for any
// struct fields that are unset i.e. are the zero value for the given field type.
// The error text strings are fetched from the errorTxt tags values found in the supplied interface (struct)
// where tag mandatory:"yes" is set.
// Nested structs and map values of struct type are descended into.
func GetStructErrorTxt4UnsetFields(i interface{}, errTags *[]string) {
	if i == nil {
		return
	}
	val := reflect.ValueOf(i)
	if val.Kind() == reflect.Ptr {
		if val.IsNil() {
			return
		}
		val = val.Elem()
	}
	if val.Kind() != reflect.Struct {
		return
	}
	typ := val.Type()
	for idx := 0; idx < val.NumField(); idx++ { // for each field in the struct...
		field := typ.Field(idx)
		if field.PkgPath != "" { // if the field is not exported...
			continue
		}
		f := val.Field(idx)
		switch f.Kind() {
		case reflect.Struct: // descend another level.
			GetStructErrorTxt4UnsetFields(f.Interface(), errTags)
		case reflect.Map:
			keys := f.MapKeys()
			for _, k := range keys { // for each map value that is a struct...
				mapVal := f.MapIndex(k)
				if mapVal.Kind() == reflect.Struct {
					GetStructErrorTxt4UnsetFields(mapVal.Interface(), errTags)
				}
			}
		case reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		default:
			if field.Tag.Get("mandatory") == "yes" && f.IsZero() { // if the mandatory field is its zero value...
				*errTags = append(*errTags, field.Tag.Get("errorTxt"))
			}
		}
	}
}
