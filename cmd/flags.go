package cmd

import (
	"fmt"
	"strconv"
)

// boolValue is a boolean flag that takes its value as a separate argument,
// as in "--open false". pflag's own bool flags only accept "--open=false".
type boolValue bool

func newBoolValue(def bool) *boolValue {
	v := boolValue(def)
	return &v
}

func (b *boolValue) Set(s string) error {
	v, err := strconv.ParseBool(s)
	if err != nil {
		return fmt.Errorf("expected true or false, got %q", s)
	}
	*b = boolValue(v)
	return nil
}

func (b *boolValue) String() string {
	return strconv.FormatBool(bool(*b))
}

// Type is "bool" so flags.GetBool reads it like any other bool flag
func (b *boolValue) Type() string {
	return "bool"
}
