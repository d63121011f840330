package testkit

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"

	"scorecard/domain/dataset"
)

// LoanGeneratorConfig configures the synthetic loan book
type LoanGeneratorConfig struct {
	LoanCount       int     `json:"loan_count"`
	BaseDefaultRate float64 `json:"base_default_rate"`
	MissingRate     float64 `json:"missing_rate"` // share of emp_length and revol_util left blank
	Seed            int64   `json:"seed"`
}

// DefaultLoanConfig returns sensible defaults for loan generation
func DefaultLoanConfig() LoanGeneratorConfig {
	return LoanGeneratorConfig{
		LoanCount:       5000,
		BaseDefaultRate: 0.2,
		MissingRate:     0.03,
		Seed:            42,
	}
}

// Loan is one generated loan record
type Loan struct {
	ID            int
	LoanAmnt      float64
	IntRate       float64
	AnnualInc     float64
	DTI           float64
	RevolUtil     float64 // NaN when missing
	Grade         string
	HomeOwnership string
	Purpose       string
	EmpLength     string // empty when missing
	DefaultFlag   int
}

// LoanColumns is the header written by WriteCSV, in order
var LoanColumns = []string{
	"id", "loan_amnt", "int_rate", "annual_inc", "dti", "revol_util",
	"grade", "home_ownership", "purpose", "emp_length", "default_flag",
}

var (
	grades         = []string{"A", "B", "C", "D", "E", "F", "G"}
	gradeRates     = []float64{7.0, 10.5, 14.0, 17.5, 21.0, 24.5, 28.0}
	homeOwnerships = []string{"MORTGAGE", "RENT", "OWN"}
	homeEffects    = []float64{-0.25, 0.2, 0.0}
	purposes       = []string{"debt_consolidation", "credit_card", "home_improvement", "small_business", "other"}
	purposeEffects = []float64{0.05, -0.1, -0.15, 0.45, 0.1}
	empLengths     = []string{"< 1 year", "1 year", "2 years", "5 years", "10+ years"}
)

// LoanDataGenerator generates loan records whose default risk rises with
// grade, dti and utilisation and falls with income
type LoanDataGenerator struct {
	config LoanGeneratorConfig
	rng    *rand.Rand
}

// NewLoanDataGenerator creates a new loan generator
func NewLoanDataGenerator(config LoanGeneratorConfig) *LoanDataGenerator {
	return &LoanDataGenerator{
		config: config,
		rng:    rand.New(rand.NewSource(config.Seed)),
	}
}

// GenerateLoans draws the configured number of loans
func (g *LoanDataGenerator) GenerateLoans() []Loan {
	intercept := math.Log(g.config.BaseDefaultRate / (1 - g.config.BaseDefaultRate))
	loans := make([]Loan, g.config.LoanCount)
	for i := range loans {
		loans[i] = g.generateLoan(i+1, intercept)
	}
	return loans
}

func (g *LoanDataGenerator) generateLoan(id int, intercept float64) Loan {
	grade := g.rng.Intn(len(grades))
	home := g.rng.Intn(len(homeOwnerships))
	purpose := g.rng.Intn(len(purposes))

	loan := Loan{
		ID:            id,
		LoanAmnt:      math.Round(1000 + g.rng.Float64()*34000),
		IntRate:       round2(gradeRates[grade] + g.rng.NormFloat64()*1.2),
		AnnualInc:     math.Round(math.Exp(11 + 0.5*g.rng.NormFloat64())),
		DTI:           round2(clamp(18+8*g.rng.NormFloat64(), 0, 45)),
		RevolUtil:     round2(clamp(50+25*g.rng.NormFloat64(), 0, 120)),
		Grade:         grades[grade],
		HomeOwnership: homeOwnerships[home],
		Purpose:       purposes[purpose],
		EmpLength:     empLengths[g.rng.Intn(len(empLengths))],
	}

	eta := intercept +
		0.3*(float64(grade)-3) +
		0.03*(loan.DTI-18) +
		0.01*(loan.RevolUtil-50) -
		0.5*math.Log(loan.AnnualInc/60000) +
		homeEffects[home] +
		purposeEffects[purpose]
	if g.rng.Float64() < 1/(1+math.Exp(-eta)) {
		loan.DefaultFlag = 1
	}

	if g.rng.Float64() < g.config.MissingRate {
		loan.RevolUtil = math.NaN()
	}
	if g.rng.Float64() < g.config.MissingRate {
		loan.EmpLength = ""
	}
	return loan
}

// Table converts loans into a dataset table with LoanColumns
func Table(loans []Loan) (*dataset.Table, error) {
	n := len(loans)
	floats := map[string][]float64{}
	for _, name := range []string{"id", "loan_amnt", "int_rate", "annual_inc", "dti", "revol_util", "default_flag"} {
		floats[name] = make([]float64, n)
	}
	strs := map[string][]string{}
	for _, name := range []string{"grade", "home_ownership", "purpose", "emp_length"} {
		strs[name] = make([]string, n)
	}
	for i, l := range loans {
		floats["id"][i] = float64(l.ID)
		floats["loan_amnt"][i] = l.LoanAmnt
		floats["int_rate"][i] = l.IntRate
		floats["annual_inc"][i] = l.AnnualInc
		floats["dti"][i] = l.DTI
		floats["revol_util"][i] = l.RevolUtil
		floats["default_flag"][i] = float64(l.DefaultFlag)
		strs["grade"][i] = l.Grade
		strs["home_ownership"][i] = l.HomeOwnership
		strs["purpose"][i] = l.Purpose
		strs["emp_length"][i] = l.EmpLength
	}

	columns := make([]dataset.Column, 0, len(LoanColumns))
	for _, name := range LoanColumns {
		if v, ok := floats[name]; ok {
			columns = append(columns, dataset.NumericColumn(name, v))
		} else {
			columns = append(columns, dataset.CategoricalColumn(name, strs[name]))
		}
	}
	return dataset.New(columns...)
}

// WriteCSV writes loans with a header row. Missing values are written as
// "NA" for categorical columns and left blank for numeric ones.
func WriteCSV(w io.Writer, loans []Loan) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(LoanColumns); err != nil {
		return err
	}
	for _, l := range loans {
		emp := l.EmpLength
		if emp == "" {
			emp = "NA"
		}
		record := []string{
			strconv.Itoa(l.ID),
			formatFloat(l.LoanAmnt),
			formatFloat(l.IntRate),
			formatFloat(l.AnnualInc),
			formatFloat(l.DTI),
			formatFloat(l.RevolUtil),
			l.Grade,
			l.HomeOwnership,
			l.Purpose,
			emp,
			strconv.Itoa(l.DefaultFlag),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteCSVFile generates a loan book and writes it to path
func (g *LoanDataGenerator) WriteCSVFile(path string) (int, error) {
	loans := g.GenerateLoans()
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return 0, fmt.Errorf("create %s: %w", dir, err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", path, err)
	}
	if err := WriteCSV(f, loans); err != nil {
		f.Close()
		return 0, fmt.Errorf("write %s: %w", path, err)
	}
	return len(loans), f.Close()
}

func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
