package roster

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Bounds is the allowed number of blocks a clinician covers in a division.
type Bounds struct {
	Min int `json:"min" yaml:"min" validate:"gte=0"`
	Max int `json:"max" yaml:"max" validate:"gtefield=Min"`
}

// Entry is one clinician in a roster file.
type Entry struct {
	Email     string            `json:"email" yaml:"email" validate:"omitempty,email"`
	Divisions map[string]Bounds `json:"divisions" yaml:"divisions" validate:"required,min=1,dive,keys,required,endkeys"`
}

// File maps clinician names to their entries. It is the on-disk roster shape.
type File map[string]Entry

// Availability lists the blocks and weekends a clinician asked to have off.
type Availability struct {
	BlocksOff   []int `json:"blocks_off" yaml:"blocks_off"`
	WeekendsOff []int `json:"weekends_off" yaml:"weekends_off"`
}

// AvailabilityFile maps clinician names to availability overrides.
type AvailabilityFile map[string]Availability

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks every entry of the file.
func (f File) Validate() error {
	if len(f) == 0 {
		return errors.New("roster: no clinicians")
	}
	var errs []error
	for _, name := range f.Names() {
		if strings.TrimSpace(name) == "" {
			errs = append(errs, errors.New("roster: empty clinician name"))
			continue
		}
		if err := validate.Struct(f[name]); err != nil {
			errs = append(errs, fmt.Errorf("roster: clinician %s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// Names returns the clinician names in sorted order.
func (f File) Names() []string {
	names := make([]string, 0, len(f))
	for n := range f {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Load reads a roster file in JSON or YAML depending on its extension.
func Load(path string) (File, error) {
	var f File
	if err := loadFile(path, &f); err != nil {
		return nil, err
	}
	return f, nil
}

// Decode reads a roster from r in the given format ("json" or "yaml").
func Decode(r io.Reader, format string) (File, error) {
	var f File
	if err := decode(r, format, &f); err != nil {
		return nil, err
	}
	return f, nil
}

// LoadAvailability reads an availability file in JSON or YAML.
func LoadAvailability(path string) (AvailabilityFile, error) {
	var a AvailabilityFile
	if err := loadFile(path, &a); err != nil {
		return nil, err
	}
	return a, nil
}

// Save writes the roster to path, choosing the format from the extension.
func Save(path string, f File) error {
	format, err := formatOf(path)
	if err != nil {
		return err
	}
	var b []byte
	if format == "json" {
		b, err = json.MarshalIndent(f, "", "  ")
	} else {
		b, err = yaml.Marshal(f)
	}
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

func loadFile(path string, out any) error {
	format, err := formatOf(path)
	if err != nil {
		return err
	}
	fh, err := os.Open(path)
	if err != nil {
		return err
	}
	defer fh.Close()
	return decode(fh, format, out)
}

func formatOf(path string) (string, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		return "yaml", nil
	case ".json":
		return "json", nil
	default:
		return "", fmt.Errorf("unsupported roster format: %s", ext)
	}
}

func decode(r io.Reader, format string, out any) error {
	switch strings.ToLower(format) {
	case "yaml", "yml":
		if err := yaml.NewDecoder(r).Decode(out); err != nil && !errors.Is(err, io.EOF) {
			return err
		}
	case "json":
		if err := json.NewDecoder(r).Decode(out); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
	return nil
}
