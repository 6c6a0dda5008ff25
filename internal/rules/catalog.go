// Package rules loads the rule catalog from its three category source files.
package rules

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/ppiankov/wordrules/internal/model"
)

// UnknownQuestion is returned for rule ids the catalog does not define
const UnknownQuestion = "unknown question"

// ErrSourceUnavailable marks a rule source that could not be read or decoded
var ErrSourceUnavailable = errors.New("rule source unavailable")

// Source is one category file
type Source struct {
	Category model.Category
	Path     string
}

// SourcesFromConfig returns the context, property and wording sources in load order
func SourcesFromConfig(cfg model.RulesConfig) []Source {
	return []Source{
		{Category: model.CategoryContext, Path: filepath.Join(cfg.Dir, cfg.ContextFile)},
		{Category: model.CategoryProperty, Path: filepath.Join(cfg.Dir, cfg.PropertyFile)},
		{Category: model.CategoryWording, Path: filepath.Join(cfg.Dir, cfg.WordingFile)},
	}
}

type sourceFile struct {
	Rules []struct {
		ID       int    `json:"id"`
		Question string `json:"question"`
	} `json:"rules"`
}

// Catalog is the merged, immutable set of rule definitions
type Catalog struct {
	rules  map[int]model.RuleDefinition
	origin map[int]model.Category
}

// Load reads every source in order. A source that is missing or malformed
// contributes no rules; the failure is logged and loading continues.
// When two sources define the same id the later one wins and a warning is logged.
func Load(sources []Source, logger *slog.Logger) *Catalog {
	if logger == nil {
		logger = slog.Default()
	}

	c := &Catalog{
		rules:  make(map[int]model.RuleDefinition),
		origin: make(map[int]model.Category),
	}

	for _, src := range sources {
		defs, err := readSource(src)
		if err != nil {
			logger.Warn("rules: source unavailable",
				"category", src.Category,
				"path", src.Path,
				"error", err,
			)
			continue
		}

		for _, def := range defs {
			if !model.ValidRuleID(def.ID) {
				logger.Warn("rules: rule id out of range, skipped",
					"category", src.Category,
					"rule_id", def.ID,
				)
				continue
			}
			if def.Category != src.Category {
				logger.Warn("rules: rule id outside its source category",
					"source_category", src.Category,
					"rule_id", def.ID,
					"category", def.Category,
				)
			}
			if prev, ok := c.origin[def.ID]; ok {
				logger.Warn("rules: duplicate rule id, later definition wins",
					"rule_id", def.ID,
					"previous_source", prev,
					"source", src.Category,
				)
			}
			c.rules[def.ID] = def
			c.origin[def.ID] = src.Category
		}
	}

	if missing := c.Missing(); len(missing) > 0 {
		logger.Debug("rules: catalog incomplete", "loaded", len(c.rules), "missing", len(missing))
	}

	return c
}

// New builds a catalog directly from definitions, later entries overriding earlier ones
func New(defs []model.RuleDefinition) *Catalog {
	c := &Catalog{
		rules:  make(map[int]model.RuleDefinition, len(defs)),
		origin: make(map[int]model.Category, len(defs)),
	}
	for _, def := range defs {
		def.Category = model.CategoryOf(def.ID)
		c.rules[def.ID] = def
		c.origin[def.ID] = def.Category
	}
	return c
}

func readSource(src Source) ([]model.RuleDefinition, error) {
	data, err := os.ReadFile(src.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}

	var file sourceFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", ErrSourceUnavailable, src.Path, err)
	}

	defs := make([]model.RuleDefinition, 0, len(file.Rules))
	for _, r := range file.Rules {
		defs = append(defs, model.RuleDefinition{
			ID:       r.ID,
			Category: model.CategoryOf(r.ID),
			Question: r.Question,
		})
	}
	return defs, nil
}

// Rules returns all definitions ordered by id
func (c *Catalog) Rules() []model.RuleDefinition {
	out := make([]model.RuleDefinition, 0, len(c.rules))
	for _, def := range c.rules {
		out = append(out, def)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len returns the number of loaded rules
func (c *Catalog) Len() int {
	return len(c.rules)
}

// Get returns the definition for id
func (c *Catalog) Get(id int) (model.RuleDefinition, bool) {
	def, ok := c.rules[id]
	return def, ok
}

// QuestionFor returns the question text for id, or UnknownQuestion
func (c *Catalog) QuestionFor(id int) string {
	if def, ok := c.Get(id); ok {
		return def.Question
	}
	return UnknownQuestion
}

// Missing lists rule ids in 1..RuleCount with no definition
func (c *Catalog) Missing() []int {
	var missing []int
	for id := 1; id <= model.RuleCount; id++ {
		if _, ok := c.rules[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing
}

// Fingerprint identifies the catalog content; oracle replies are cached per fingerprint
func (c *Catalog) Fingerprint() string {
	h := sha256.New()
	for _, def := range c.Rules() {
		h.Write([]byte(strconv.Itoa(def.ID)))
		h.Write([]byte{0})
		h.Write([]byte(def.Question))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}
