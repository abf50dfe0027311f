package step

import (
	"fmt"

	pipeline "github.com/rnwood/Fake4Dataverse-sub003"
)

// Describes is implemented by plugin sources that declare their own step
// registrations. It is the default way to register declaratively: the
// source states its triggers once and Convert turns them into
// registrations at setup time.
type Describes interface {
	StepRegistrations() []*Registration
}

// Converter maps one registration source to zero or more registrations.
// Converters are pure: they run once at setup, never at dispatch time.
// A converter that does not recognize the source returns (nil, nil) so
// the next converter in the list can try.
type Converter func(source any) ([]*Registration, error)

// DescribesConverter converts sources implementing Describes.
func DescribesConverter(source any) ([]*Registration, error) {
	d, ok := source.(Describes)
	if !ok {
		return nil, nil
	}
	return d.StepRegistrations(), nil
}

// Convert maps each source through the converter list, first match wins.
// When no converter list is given, DescribesConverter is used. Every
// produced registration is validated; a source no converter recognizes
// is an error.
func Convert(sources []any, converters ...Converter) ([]*Registration, error) {
	if len(converters) == 0 {
		converters = []Converter{DescribesConverter}
	}

	var regs []*Registration
	for _, source := range sources {
		converted, err := convertOne(source, converters)
		if err != nil {
			return nil, err
		}
		regs = append(regs, converted...)
	}
	return regs, nil
}

func convertOne(source any, converters []Converter) ([]*Registration, error) {
	for _, conv := range converters {
		regs, err := conv(source)
		if err != nil {
			return nil, fmt.Errorf("convert %T: %w", source, err)
		}
		if regs == nil {
			continue
		}
		for _, reg := range regs {
			if validateErr := reg.Validate(); validateErr != nil {
				return nil, fmt.Errorf("convert %T: %w", source, validateErr)
			}
		}
		return regs, nil
	}
	return nil, fmt.Errorf("%w: no converter recognizes %T", pipeline.ErrInvalidRegistration, source)
}
