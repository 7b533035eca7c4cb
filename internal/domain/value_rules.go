package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

var (
	validate = validator.New()

	timePattern  = regexp.MustCompile(`(?i)^(\d{1,2})(?::?(\d{2}))?\s*(am|pm|a\.m\.|p\.m\.)?$`)
	phonePattern = regexp.MustCompile(`(?i)^\+?[0-9(][0-9 ().\-]*(\s*(x|ext\.?)\s*[0-9]+)?$`)
)

// NormalizeValue converts raw input into the canonical stored form for the
// definition's data type and checks it against the allowed values and the
// validation rule. Errors wrap ErrInvalidValue.
//
// Canonical forms: phone numbers with ten digits become 503.216.6407,
// booleans become true/false, times become 24h HH:MM.
func (d *Definition) NormalizeValue(raw string) (string, error) {
	value, err := normalizeByType(d.DataType, raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidValue, err)
	}

	if !d.IsAllowed(value) {
		return "", fmt.Errorf("%w: %q is not one of %s",
			ErrInvalidValue, value, strings.Join(d.AllowedValues, ", "))
	}

	if err := applyRule(d.DataType, d.ValidationRule, value); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidValue, err)
	}
	return value, nil
}

// CheckStored reports whether a previously stored value still satisfies
// the definition. Stored values are already canonical, so a value that
// normalizes to something different is stale as well.
func (d *Definition) CheckStored(value string) error {
	normalized, err := d.NormalizeValue(value)
	if err != nil {
		return err
	}
	if normalized != value {
		return fmt.Errorf("%w: stored %q is not in canonical form %q", ErrInvalidValue, value, normalized)
	}
	return nil
}

func normalizeByType(dataType DataType, raw string) (string, error) {
	value := strings.TrimSpace(raw)
	if value == "" && dataType != DataTypeText {
		return "", errors.New("value cannot be empty")
	}

	switch dataType {
	case DataTypeText:
		return value, nil
	case DataTypeNumber:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return "", fmt.Errorf("%q is not a number", value)
		}
		return value, nil
	case DataTypeBoolean:
		return normalizeBoolean(value)
	case DataTypeJSON:
		if !json.Valid([]byte(value)) {
			return "", fmt.Errorf("%q is not valid JSON", value)
		}
		return value, nil
	case DataTypePhone:
		return normalizePhone(value)
	case DataTypeEmail:
		if err := validate.Var(value, "email"); err != nil {
			return "", fmt.Errorf("%q is not a valid email address", value)
		}
		return value, nil
	case DataTypeTime:
		return normalizeTime(value)
	default:
		return "", fmt.Errorf("unknown data type %q", dataType)
	}
}

func normalizeBoolean(value string) (string, error) {
	switch strings.ToLower(value) {
	case "true", "yes", "y", "1", "enabled", "on":
		return "true", nil
	case "false", "no", "n", "0", "disabled", "off":
		return "false", nil
	default:
		return "", fmt.Errorf("%q is not a boolean", value)
	}
}

func normalizePhone(value string) (string, error) {
	if !phonePattern.MatchString(value) {
		return "", fmt.Errorf("%q is not a phone number", value)
	}

	var digits strings.Builder
	for _, r := range value {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	d := digits.String()

	if len(d) == 11 && d[0] == '1' {
		d = d[1:]
	}
	if len(d) == 10 {
		return d[:3] + "." + d[3:6] + "." + d[6:], nil
	}
	// Extensions and international numbers are kept as written.
	if len(d) < 7 {
		return "", fmt.Errorf("%q has too few digits for a phone number", value)
	}
	return value, nil
}

func normalizeTime(value string) (string, error) {
	m := timePattern.FindStringSubmatch(value)
	if m == nil {
		return "", fmt.Errorf("%q is not a time of day", value)
	}

	hour, _ := strconv.Atoi(m[1])
	minute := 0
	if m[2] != "" {
		minute, _ = strconv.Atoi(m[2])
	}
	meridiem := strings.ToLower(strings.ReplaceAll(m[3], ".", ""))

	switch meridiem {
	case "am", "pm":
		if hour < 1 || hour > 12 {
			return "", fmt.Errorf("%q has an hour outside 1-12", value)
		}
		if meridiem == "pm" && hour < 12 {
			hour += 12
		} else if meridiem == "am" && hour == 12 {
			hour = 0
		}
	default:
		if hour > 23 {
			return "", fmt.Errorf("%q has an hour outside 0-23", value)
		}
	}
	if minute > 59 {
		return "", fmt.Errorf("%q has minutes outside 0-59", value)
	}
	return fmt.Sprintf("%02d:%02d", hour, minute), nil
}

// checkRule verifies that a validation rule can be compiled. JSON keys use a
// JSON Schema document as their rule; every other type uses a regular
// expression.
func checkRule(dataType DataType, rule string) error {
	if rule == "" {
		return nil
	}
	if dataType == DataTypeJSON {
		_, err := compileSchema(rule)
		return err
	}
	if _, err := regexp.Compile(rule); err != nil {
		return fmt.Errorf("validation rule: %w", err)
	}
	return nil
}

func applyRule(dataType DataType, rule, value string) error {
	if rule == "" {
		return nil
	}

	if dataType == DataTypeJSON {
		schema, err := compileSchema(rule)
		if err != nil {
			return err
		}
		dec := json.NewDecoder(bytes.NewReader([]byte(value)))
		dec.UseNumber()
		var doc any
		if err := dec.Decode(&doc); err != nil {
			return fmt.Errorf("decode value: %w", err)
		}
		if err := schema.Validate(doc); err != nil {
			return fmt.Errorf("schema validation failed: %w", err)
		}
		return nil
	}

	re, err := regexp.Compile(rule)
	if err != nil {
		return fmt.Errorf("validation rule: %w", err)
	}
	if !re.MatchString(value) {
		return fmt.Errorf("%q does not match %s", value, rule)
	}
	return nil
}

func compileSchema(rule string) (*jsonschema.Schema, error) {
	schema, err := jsonschema.CompileString("inmemory://validation_rule", rule)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
}
