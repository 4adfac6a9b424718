// Package envconf fills configuration structs from environment variables.
//
//	type Config struct {
//		Port     uint16        `env:"APP_PORT" envDefault:"8080"`
//		Timeout  time.Duration `env:"APP_TIMEOUT"`
//		Postgres PostgresConfig
//	}
//
// A field tagged `env:"NAME"` is required unless it also carries
// `envDefault`. Untagged struct fields (and pointers to structs) are
// walked recursively. Types implementing encoding.TextUnmarshaler parse
// through it; otherwise strings, bools, ints, uints, floats and
// time.Duration are supported.
package envconf

import (
	"encoding"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
)

var (
	ErrMissingRequired = errors.New("missing required environment variable")
	ErrUnsupportedType = errors.New("unsupported field type")
)

// LookupFunc resolves one variable, reporting whether it is set.
type LookupFunc func(name string) (string, bool)

var (
	durationType        = reflect.TypeOf(time.Duration(0))
	textUnmarshalerType = reflect.TypeOf((*encoding.TextUnmarshaler)(nil)).Elem()
)

// Load fills dst from the process environment.
func Load(dst any) error {
	return LoadFrom(dst, os.LookupEnv)
}

// LoadFrom fills dst from lookup. Every missing required variable is
// reported in one error.
func LoadFrom(dst any, lookup LookupFunc) error {
	if dst == nil {
		return errors.New("destination is nil")
	}

	v := reflect.ValueOf(dst)
	if v.Kind() != reflect.Pointer || v.IsNil() {
		return errors.New("destination must be a non-nil pointer to a struct")
	}

	if v.Elem().Kind() != reflect.Struct {
		return errors.New("destination must point to a struct")
	}

	l := &loader{lookup: lookup}

	err := l.walk(v.Elem(), "")
	if err != nil {
		return err
	}

	if len(l.missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingRequired, strings.Join(l.missing, ", "))
	}

	return nil
}

type loader struct {
	lookup  LookupFunc
	missing []string
}

func (l *loader) walk(v reflect.Value, path string) error {
	t := v.Type()

	for i := range v.NumField() {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}

		fv := v.Field(i)
		name := sf.Name
		if path != "" {
			name = path + "." + sf.Name
		}

		tag := sf.Tag.Get("env")
		if tag == "" || tag == "-" {
			err := l.descend(fv, name)
			if err != nil {
				return err
			}

			continue
		}

		raw, ok := l.lookup(tag)
		if !ok {
			raw, ok = sf.Tag.Lookup("envDefault")
		}

		if !ok {
			l.missing = append(l.missing, fmt.Sprintf("%s (field %s)", tag, name))
			continue
		}

		err := setValue(fv, raw)
		if err != nil {
			return fmt.Errorf("parse %s for field %s: %w", tag, name, err)
		}
	}

	return nil
}

// descend loads untagged struct and pointer-to-struct fields.
func (l *loader) descend(fv reflect.Value, name string) error {
	switch {
	case fv.Kind() == reflect.Struct && fv.Type() != durationType:
		return l.walk(fv, name)
	case fv.Kind() == reflect.Pointer && fv.Type().Elem().Kind() == reflect.Struct:
		if fv.IsNil() {
			fv.Set(reflect.New(fv.Type().Elem()))
		}

		return l.walk(fv.Elem(), name)
	default:
		return nil
	}
}

func setValue(fv reflect.Value, raw string) error {
	if !fv.CanSet() {
		return fmt.Errorf("field not settable: %w", ErrUnsupportedType)
	}

	if reflect.PointerTo(fv.Type()).Implements(textUnmarshalerType) {
		u, _ := fv.Addr().Interface().(encoding.TextUnmarshaler)

		err := u.UnmarshalText([]byte(raw))
		if err != nil {
			return fmt.Errorf("unmarshal text: %w", err)
		}

		return nil
	}

	if fv.Kind() == reflect.Pointer {
		elem := reflect.New(fv.Type().Elem())

		err := setValue(elem.Elem(), raw)
		if err != nil {
			return err
		}

		fv.Set(elem)

		return nil
	}

	return setScalar(fv, raw)
}

//nolint:cyclop
func setScalar(fv reflect.Value, raw string) error {
	switch fv.Kind() {
	case reflect.String:
		fv.SetString(raw)
	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("parse bool: %w", err)
		}

		fv.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if fv.Type() == durationType {
			d, err := time.ParseDuration(raw)
			if err != nil {
				return fmt.Errorf("parse duration: %w", err)
			}

			fv.SetInt(int64(d))

			return nil
		}

		i, err := strconv.ParseInt(raw, 10, fv.Type().Bits())
		if err != nil {
			return fmt.Errorf("parse int: %w", err)
		}

		fv.SetInt(i)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u, err := strconv.ParseUint(raw, 10, fv.Type().Bits())
		if err != nil {
			return fmt.Errorf("parse uint: %w", err)
		}

		fv.SetUint(u)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(raw, fv.Type().Bits())
		if err != nil {
			return fmt.Errorf("parse float: %w", err)
		}

		fv.SetFloat(f)
	default:
		return fmt.Errorf("%s: %w", fv.Type(), ErrUnsupportedType)
	}

	return nil
}
