// Package schema holds the column contract of the prepared dataset: which
// columns are required, which may be imputed, which are tolerated noise, and
// the encoding vocabulary that fixes the indicator columns consumed by
// training, serving and monitoring.
package schema

import "sort"

// Canonical column names.
const (
	ColPrice        = "price"
	ColYear         = "year"
	ColMileage      = "mileage"
	ColEngineSize   = "enginesize"
	ColTax          = "tax"
	ColMPG          = "mpg"
	ColMake         = "make"
	ColModel        = "model"
	ColTransmission = "transmission"
	ColFuelType     = "fueltype"
)

// Target is the training target column.
const Target = ColPrice

// NumericFeatures lists the numeric model features in output order.
var NumericFeatures = []string{ColYear, ColMileage, ColEngineSize, ColTax, ColMPG}

// NominalFields lists the fields expanded into indicator columns, in output
// order.
var NominalFields = []string{ColMake, ColTransmission, ColFuelType}

// Role classifies a declared column.
type Role int

const (
	// Required columns must be present after merging; their absence aborts.
	Required Role = iota
	// Imputable columns may be absent from some sources; the imputer fills
	// them and fails when a column has no observed value at all.
	Imputable
	// Optional columns may be absent everywhere without consequence.
	Optional
)

func (r Role) String() string {
	switch r {
	case Required:
		return "required"
	case Imputable:
		return "imputable"
	case Optional:
		return "optional"
	}
	return "unknown"
}

// Declared maps canonical column name to its role.
type Declared map[string]Role

// DefaultDeclared is the column contract of the merged listing table.
func DefaultDeclared() Declared {
	return Declared{
		ColPrice:        Required,
		ColYear:         Required,
		ColMileage:      Required,
		ColMake:         Required,
		ColTransmission: Required,
		ColEngineSize:   Imputable,
		ColTax:          Imputable,
		ColMPG:          Imputable,
		ColFuelType:     Imputable,
		ColModel:        Optional,
	}
}

// Names returns the declared names with the given role, sorted.
func (d Declared) Names(role Role) []string {
	var out []string
	for n, r := range d {
		if r == role {
			out = append(out, n)
		}
	}
	sort.Strings(out)
	return out
}

// Check compares the present columns with the declaration. It returns the
// required columns that are missing and the present columns that are not
// declared at all (both sorted).
func (d Declared) Check(present []string) (missing, undeclared []string) {
	have := make(map[string]struct{}, len(present))
	for _, c := range present {
		have[c] = struct{}{}
		if _, ok := d[c]; !ok {
			undeclared = append(undeclared, c)
		}
	}
	for _, c := range d.Names(Required) {
		if _, ok := have[c]; !ok {
			missing = append(missing, c)
		}
	}
	sort.Strings(undeclared)
	return missing, undeclared
}
