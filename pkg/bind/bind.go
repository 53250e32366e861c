// Package bind decodes an HTTP request (form or JSON body) into a struct and
// validates it.
package bind

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/yellowrose/possrv/config"
	"github.com/yellowrose/possrv/pkg/validate"
)

// maxBodyBytes returns the configured request body size limit (default 1 MB).
func maxBodyBytes() int64 {
	n, err := strconv.ParseInt(config.Get("MAX_BODY_BYTES", "1048576"), 10, 64)
	if err != nil || n <= 0 {
		return 1 << 20
	}
	return n
}

// JSON decodes r.Body as JSON into dest and runs validation.
// Returns (errs, nil) on validation failures and (nil, err) for malformed bodies.
func JSON(r *http.Request, dest interface{}) (errs map[string]string, err error) {
	r.Body = http.MaxBytesReader(nil, r.Body, maxBodyBytes())

	if err = json.NewDecoder(r.Body).Decode(dest); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, fmt.Errorf("request body too large (max %d bytes)", maxErr.Limit)
		}
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}

	return validated(dest), nil
}

// Form fills dest's string, int and float fields from the request's form
// values (query string plus url-encoded body) by `form` tag, then validates.
// Values that do not parse as the field's type are reported as field errors.
func Form(r *http.Request, dest interface{}) (errs map[string]string, err error) {
	r.Body = http.MaxBytesReader(nil, r.Body, maxBodyBytes())
	if err := r.ParseForm(); err != nil {
		return nil, fmt.Errorf("invalid form: %w", err)
	}

	rv := reflect.ValueOf(dest)
	if rv.Kind() != reflect.Ptr || rv.Elem().Kind() != reflect.Struct {
		return nil, errors.New("bind: dest must be a pointer to struct")
	}
	rv = rv.Elem()
	rt := rv.Type()

	errs = map[string]string{}
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		if !field.IsExported() {
			continue
		}
		name := validate.FieldName(field)
		if !r.Form.Has(name) {
			continue
		}
		raw := strings.TrimSpace(r.Form.Get(name))
		fv := rv.Field(i)

		switch fv.Kind() {
		case reflect.String:
			fv.SetString(raw)
		case reflect.Int, reflect.Int64, reflect.Int32:
			if raw == "" {
				continue
			}
			n, perr := strconv.ParseInt(raw, 10, 64)
			if perr != nil {
				errs[name] = fmt.Sprintf("The %s field must be an integer.", name)
				continue
			}
			fv.SetInt(n)
		case reflect.Float64, reflect.Float32:
			if raw == "" {
				continue
			}
			f, perr := strconv.ParseFloat(raw, 64)
			if perr != nil {
				errs[name] = fmt.Sprintf("The %s field must be a number.", name)
				continue
			}
			fv.SetFloat(f)
		}
	}

	for k, v := range validated(dest) {
		if _, seen := errs[k]; !seen {
			errs[k] = v
		}
	}
	if len(errs) == 0 {
		return nil, nil
	}
	return errs, nil
}

func validated(dest interface{}) map[string]string {
	errs := validate.Struct(dest)
	if validate.HasErrors(errs) {
		return errs
	}
	return nil
}
