// Package scenario replays scripted user interactions against a dashboard
// session and checks the state it ends up in.
package scenario

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Sentinel kinds for scenario errors.
var (
	ErrInvalidScript = errors.New("invalid scenario script")
	ErrExpectation   = errors.New("expectation failed")
)

// Action names a step.
type Action string

// Supported actions.
const (
	ClickCountry      Action = "click_country"
	HoverCountry      Action = "hover_country"
	ClickProfile      Action = "click_profile"
	DateRange         Action = "date_range"
	Category          Action = "category"
	Subcategory       Action = "subcategory"
	OpenSimilarity    Action = "open_similarity"
	CloseSimilarity   Action = "close_similarity"
	Lasso             Action = "lasso"
	Deselect          Action = "deselect"
	ClickCustomer     Action = "click_customer"
	SimilarityOptions Action = "similarity_options"
	ClickSalesDate    Action = "click_sales_date"
	Reset             Action = "reset"
	Pan               Action = "pan"
	Zoom              Action = "zoom"
)

// Script is a named list of steps.
type Script struct {
	Name  string `yaml:"name"`
	Steps []Step `yaml:"steps"`
}

// Step is one interaction. Only the fields its action uses are read.
type Step struct {
	Action      Action         `yaml:"action"`
	Country     string         `yaml:"country,omitempty"`
	Profile     string         `yaml:"profile,omitempty"`
	Category    string         `yaml:"category,omitempty"`
	Subcategory string         `yaml:"subcategory,omitempty"`
	Start       string         `yaml:"start,omitempty"`
	End         string         `yaml:"end,omitempty"`
	Customers   []string       `yaml:"customers,omitempty"`
	Customer    string         `yaml:"customer,omitempty"`
	Date        string         `yaml:"date,omitempty"`
	Options     *OptionsChange `yaml:"options,omitempty"`
	Lon         float64        `yaml:"lon,omitempty"`
	Lat         float64        `yaml:"lat,omitempty"`
	Ticks       int            `yaml:"ticks,omitempty"`
	// AllowError lets the script continue when the step is rejected.
	AllowError bool    `yaml:"allow_error,omitempty"`
	Expect     *Expect `yaml:"expect,omitempty"`
}

// OptionsChange overrides the current similarity options; unset fields keep
// their value.
type OptionsChange struct {
	CustomerID    *string `yaml:"customer_id,omitempty"`
	K             *int    `yaml:"k,omitempty"`
	Metric        *string `yaml:"metric,omitempty"`
	Normalization *string `yaml:"normalization,omitempty"`
	Embedding     *string `yaml:"dimred,omitempty"`
	XAxis         *int    `yaml:"x_axis,omitempty"`
	YAxis         *int    `yaml:"y_axis,omitempty"`
}

// Load reads a script from a YAML file.
func Load(path string) (*Script, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	return Parse(bytes.NewReader(b))
}

// Parse decodes and checks a script. Unknown keys are rejected.
func Parse(r io.Reader) (*Script, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var s Script
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidScript, err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks that every step carries what its action needs.
func (s *Script) Validate() error {
	if len(s.Steps) == 0 {
		return fmt.Errorf("%w: no steps", ErrInvalidScript)
	}
	for i, st := range s.Steps {
		if err := st.validate(); err != nil {
			return fmt.Errorf("%w: step %d (%s): %w", ErrInvalidScript, i+1, st.Action, err)
		}
	}
	return nil
}

func (st Step) validate() error {
	switch st.Action {
	case ClickCountry, HoverCountry:
		return require("country", st.Country)
	case ClickProfile:
		return require("profile", st.Profile)
	case DateRange:
		if err := require("start", st.Start); err != nil {
			return err
		}
		return require("end", st.End)
	case ClickCustomer:
		return require("customer", st.Customer)
	case ClickSalesDate:
		return require("date", st.Date)
	case Lasso:
		if len(st.Customers) == 0 {
			return errors.New("customers is required")
		}
	case SimilarityOptions:
		if st.Options == nil {
			return errors.New("options is required")
		}
	case Category, Subcategory, OpenSimilarity, CloseSimilarity, Deselect, Reset, Pan, Zoom:
	default:
		return fmt.Errorf("unknown action %q", st.Action)
	}
	return nil
}

func require(field, v string) error {
	if v == "" {
		return fmt.Errorf("%s is required", field)
	}
	return nil
}
