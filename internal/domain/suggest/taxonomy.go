package suggest

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Category is a taxonomy entry matched through its aliases.
type Category struct {
	ID      string   `yaml:"id" json:"id"`
	Label   string   `yaml:"label" json:"label"`
	Aliases []string `yaml:"aliases" json:"aliases"`
}

// Taxonomy is the ordered category table plus the domain dictionary.
type Taxonomy struct {
	Categories  []Category `yaml:"categories"`
	DomainTerms []string   `yaml:"domain_terms"`
}

// DefaultTaxonomy returns the built-in category table.
func DefaultTaxonomy() Taxonomy {
	return Taxonomy{
		Categories: []Category{
			{ID: "oncology", Label: "Oncology", Aliases: []string{"cancer", "tumor", "tumour", "oncology", "chemotherapy", "carcinoma"}},
			{ID: "cardiology", Label: "Cardiology", Aliases: []string{"cardiac", "heart", "cardiology", "cardiovascular", "arrhythmia"}},
			{ID: "genomics", Label: "Genomics", Aliases: []string{"genomic", "genomics", "genome", "sequencing", "variant", "dna"}},
			{ID: "imaging", Label: "Imaging", Aliases: []string{"imaging", "mri", "radiology", "scan", "xray"}},
			{ID: "pharmacy", Label: "Pharmacy", Aliases: []string{"drug", "medication", "prescription", "pharmacy", "dosage"}},
			{ID: "claims", Label: "Claims & Billing", Aliases: []string{"claims", "billing", "cost", "reimbursement", "payer"}},
			{ID: "outcomes", Label: "Outcomes", Aliases: []string{"outcome", "outcomes", "mortality", "readmission", "survival"}},
		},
		DomainTerms: []string{
			"cohort", "patient", "patients", "clinical", "trial", "registry",
			"diagnosis", "encounter", "lab", "labs", "ehr", "longitudinal",
		},
	}
}

// LoadTaxonomy reads a YAML taxonomy file.
func LoadTaxonomy(path string) (Taxonomy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Taxonomy{}, fmt.Errorf("reading taxonomy: %w", err)
	}

	var tax Taxonomy
	if err := yaml.Unmarshal(data, &tax); err != nil {
		return Taxonomy{}, fmt.Errorf("parsing taxonomy: %w", err)
	}
	if len(tax.Categories) == 0 {
		return Taxonomy{}, fmt.Errorf("taxonomy %s has no categories", path)
	}
	for i, cat := range tax.Categories {
		if strings.TrimSpace(cat.ID) == "" {
			return Taxonomy{}, fmt.Errorf("taxonomy category %d has no id", i)
		}
		for j, alias := range cat.Aliases {
			cat.Aliases[j] = strings.ToLower(strings.TrimSpace(alias))
		}
	}
	if err := tax.Validate(); err != nil {
		return Taxonomy{}, fmt.Errorf("taxonomy %s: %w", path, err)
	}
	return tax, nil
}

// Validate rejects aliases that Tokenize can never produce: stopwords,
// tokens shorter than three runes and multi-word phrases.
func (t Taxonomy) Validate() error {
	var unmatchable []string
	for _, cat := range t.Categories {
		for _, alias := range cat.Aliases {
			if !Matchable(alias) {
				unmatchable = append(unmatchable, fmt.Sprintf("%s/%q", cat.ID, alias))
			}
		}
	}
	if len(unmatchable) > 0 {
		return fmt.Errorf("%w: %s", ErrUnmatchableAlias, strings.Join(unmatchable, ", "))
	}
	return nil
}

// Matchable reports whether alias survives tokenisation unchanged.
func Matchable(alias string) bool {
	tokens := Tokenize(alias)
	return len(tokens) == 1 && tokens[0] == strings.ToLower(alias)
}

// ErrUnmatchableAlias is returned for taxonomy aliases no text can match.
var ErrUnmatchableAlias = errors.New("aliases can never match")
