// Package sampler chooses and runs a per-column value generator, per
// spec.md §4.4: predefined values win first, then enum/IN-derived sets,
// then an explicit column-type mapping, then fuzzy name matching against a
// registry of realistic generators, then a typed fallback.
package sampler

import (
	"math/rand/v2"
	"regexp/syntax"
	"strings"
	"sync"
	"time"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/shopspring/decimal"

	"github.com/Kamil-Krawiec/Data-filler/internal/core"
)

// Sampler produces one candidate value for a column. Implementations must
// be safe to call repeatedly from a single table's goroutine with its own
// *rand.Rand; sampler.Registry never shares a Sampler across tables.
type Sampler interface {
	Sample(r *rand.Rand) core.Value
}

// RealisticProvider is the injected source of domain-specific values
// (email addresses, names, phone numbers, ...). Out of scope for this
// module to implement exhaustively per spec.md §4.4; BuiltinProvider below
// ships a small concrete instance sufficient to exercise the fuzzy-match
// wiring end to end.
type RealisticProvider interface {
	// Names returns every generator name this provider can produce,
	// used as the fuzzy-matching candidate set.
	Names() []string
	// Generate produces one value for the named generator.
	Generate(name string, r *rand.Rand) string
}

// Config resolves to a single Sampler per column, per spec.md §4.4's
// precedence: predefined_values > enum/IN-derived domain >
// column_type_mappings (exact name) > fuzzy match (if enabled) > typed
// fallback. Global and per-table mappings
// don't implicitly merge: a per-table entry for a column name replaces,
// rather than extends, the corresponding global entry.
type Config struct {
	// PredefinedValues: table -> column -> closed value set, sampled
	// uniformly (spec.md §6 predefined_values).
	PredefinedValues map[string]map[string][]core.Value

	// GlobalTypeMappings / PerTableTypeMappings: column name -> realistic
	// generator name (spec.md §6 column_type_mappings).
	GlobalTypeMappings   map[string]string
	PerTableTypeMappings map[string]map[string]string

	GuessColumnTypes  bool // spec.md §6 guess_column_type_mappings
	FuzzyThreshold    int  // spec.md §6 threshold_for_guessing, 0-100
	RealisticProvider RealisticProvider
}

// DefaultThreshold is used when Config.FuzzyThreshold is left zero
// (spec.md §6 threshold_for_guessing default).
const DefaultThreshold = 80

// Registry builds and caches one Sampler per (table, column). For is safe
// to call from concurrently filling tables.
type Registry struct {
	cfg   Config
	mu    sync.Mutex
	cache map[string]Sampler
}

func NewRegistry(cfg Config) *Registry {
	if cfg.FuzzyThreshold == 0 {
		cfg.FuzzyThreshold = DefaultThreshold
	}
	if cfg.RealisticProvider == nil {
		cfg.RealisticProvider = BuiltinProvider{}
	}
	return &Registry{cfg: cfg, cache: map[string]Sampler{}}
}

// For resolves (and caches) the Sampler for one column.
func (reg *Registry) For(table string, col *core.ColumnDef) Sampler {
	key := table + "." + col.Name
	reg.mu.Lock()
	defer reg.mu.Unlock()
	if s, ok := reg.cache[key]; ok {
		return s
	}
	s := reg.build(table, col)
	reg.cache[key] = s
	return s
}

func (reg *Registry) build(table string, col *core.ColumnDef) Sampler {
	if vals, ok := reg.cfg.PredefinedValues[table][col.Name]; ok && len(vals) > 0 {
		return &UserProvidedSampler{Values: vals}
	}

	dom := col.Domain
	if dom != nil && dom.Kind == core.DomainEnum && len(dom.EnumSet) > 0 {
		return &EnumSampler{Values: dom.EnumSet, Type: col.Type}
	}

	if name, ok := reg.cfg.PerTableTypeMappings[table][col.Name]; ok {
		return reg.wrapRealistic(name, col)
	}
	if name, ok := reg.cfg.GlobalTypeMappings[col.Name]; ok {
		return reg.wrapRealistic(name, col)
	}

	if reg.cfg.GuessColumnTypes {
		if name, score := bestFuzzyMatch(col.Name, reg.cfg.RealisticProvider.Names()); score >= reg.cfg.FuzzyThreshold {
			return reg.wrapRealistic(name, col)
		}
	}

	return fallbackSampler(col)
}

func (reg *Registry) wrapRealistic(name string, col *core.ColumnDef) Sampler {
	return &RealisticSampler{Name: name, Provider: reg.cfg.RealisticProvider, Type: col.Type}
}

// bestFuzzyMatch scores name against every candidate using
// github.com/lithammer/fuzzysearch's Levenshtein-based rank, scaled 0-100
// (symmetric: case-insensitive, shorter edit distance relative to the
// longer string scores higher), and returns the best match.
func bestFuzzyMatch(name string, candidates []string) (string, int) {
	best, bestScore := "", -1
	lname := strings.ToLower(strings.ReplaceAll(name, "_", ""))
	for _, c := range candidates {
		lc := strings.ToLower(strings.ReplaceAll(c, "_", ""))
		dist := fuzzy.RankMatchNormalizedFold(lname, lc)
		if dist < 0 {
			continue // no match at all per fuzzysearch's rank function
		}
		longest := len(lname)
		if len(lc) > longest {
			longest = len(lc)
		}
		score := 100
		if longest > 0 {
			score = 100 - (dist*100)/longest
		}
		if score > bestScore {
			best, bestScore = c, score
		}
	}
	if best == "" {
		// RankMatchNormalizedFold requires near-containment; fall back to a
		// plain Levenshtein ratio so short, unrelated-looking names (e.g.
		// "dob" vs "date_of_birth") still get scored rather than skipped.
		for _, c := range candidates {
			lc := strings.ToLower(strings.ReplaceAll(c, "_", ""))
			dist := fuzzy.LevenshteinDistance(lname, lc)
			longest := len(lname)
			if len(lc) > longest {
				longest = len(lc)
			}
			if longest == 0 {
				continue
			}
			score := 100 - (dist*100)/longest
			if score > bestScore {
				best, bestScore = c, score
			}
		}
	}
	return best, bestScore
}

func fallbackSampler(col *core.ColumnDef) Sampler {
	dom := col.Domain
	switch col.Type.Kind {
	case core.TypeInteger, core.TypeSerial:
		return &NumericSampler{Domain: dom, Decimal: false}
	case core.TypeDecimal:
		return &NumericSampler{Domain: dom, Decimal: true, Scale: col.Type.Scale}
	case core.TypeBoolean:
		return &EnumSampler{Values: []string{"true", "false"}, Type: col.Type}
	case core.TypeDate, core.TypeTimestamp:
		return &DateSampler{Domain: dom}
	case core.TypeVarchar, core.TypeChar, core.TypeText, core.TypeOpaque:
		if dom != nil && dom.Regex != "" {
			return &RegexSampler{Pattern: dom.Regex, MaxLength: dom.MaxLength}
		}
		return &StringSampler{MaxLength: effectiveMaxLength(dom)}
	default:
		return &StringSampler{MaxLength: 20}
	}
}

func effectiveMaxLength(dom *core.ValueDomain) int {
	n := 20
	if dom != nil && dom.MaxLength > 0 && dom.MaxLength < n {
		n = dom.MaxLength
	}
	if n < 1 {
		n = 1
	}
	return n
}

// UserProvidedSampler picks uniformly from a closed, user-supplied set
// (spec.md §6 predefined_values).
type UserProvidedSampler struct{ Values []core.Value }

func (s *UserProvidedSampler) Sample(r *rand.Rand) core.Value {
	return s.Values[r.IntN(len(s.Values))]
}

// EnumSampler picks uniformly from a closed value set, coercing the text
// representation to the column's declared type (spec.md §4.4 step 1).
type EnumSampler struct {
	Values []string
	Type   core.TypeTag
}

func (s *EnumSampler) Sample(r *rand.Rand) core.Value {
	text := s.Values[r.IntN(len(s.Values))]
	switch s.Type.Kind {
	case core.TypeBoolean:
		return core.BoolValue(text == "true" || text == "TRUE" || text == "1")
	case core.TypeInteger, core.TypeSerial:
		if d, err := decimal.NewFromString(text); err == nil {
			return core.IntValue(d.IntPart())
		}
	case core.TypeDecimal:
		if d, err := decimal.NewFromString(text); err == nil {
			return core.DecimalValue(d)
		}
	}
	return core.StringValue(text)
}

// NumericSampler draws a random integer or decimal within Domain's bounds.
type NumericSampler struct {
	Domain  *core.ValueDomain
	Decimal bool
	Scale   int
}

func (s *NumericSampler) Sample(r *rand.Rand) core.Value {
	lo, hi := int64(-2147483647), int64(2147483647)
	if s.Domain != nil {
		if s.Domain.Min != nil {
			lo = s.Domain.Min.IntPart()
			if !s.Domain.InclusiveMin {
				lo++
			}
		}
		if s.Domain.Max != nil {
			hi = s.Domain.Max.IntPart()
			if !s.Domain.InclusiveMax {
				hi--
			}
		}
	}
	if hi < lo {
		hi = lo
	}
	span := hi - lo + 1
	var n int64
	if span <= 0 {
		n = lo
	} else {
		n = lo + r.Int64N(span)
	}
	if !s.Decimal {
		return core.IntValue(n)
	}
	d := decimal.New(n, 0)
	if s.Scale > 0 {
		frac := r.Int64N(pow10(s.Scale))
		d = d.Add(decimal.New(frac, int32(-s.Scale)))
	}
	return core.DecimalValue(d)
}

func pow10(n int) int64 {
	v := int64(1)
	for i := 0; i < n; i++ {
		v *= 10
	}
	return v
}

// DateSampler draws a random date within Domain's [MinDate, MaxDate].
type DateSampler struct{ Domain *core.ValueDomain }

const dateLayout = "2006-01-02"

func (s *DateSampler) Sample(r *rand.Rand) core.Value {
	min := mustParseDate("1970-01-01")
	max := mustParseDate(time.Now().UTC().AddDate(10, 0, 0).Format(dateLayout))
	if s.Domain != nil {
		if s.Domain.MinDate != nil {
			min = mustParseDate(*s.Domain.MinDate)
		}
		if s.Domain.MaxDate != nil {
			max = mustParseDate(*s.Domain.MaxDate)
		}
	}
	days := int(max.Sub(min).Hours() / 24)
	if days < 0 {
		days = 0
	}
	d := min.AddDate(0, 0, r.IntN(days+1))
	return core.DateValue(d.Format(dateLayout))
}

func mustParseDate(s string) time.Time {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Unix(0, 0).UTC()
	}
	return t
}

// StringSampler draws a random ASCII alphanumeric string of length in
// [1, min(max_length, 20)] (spec.md §4.4 step 4).
type StringSampler struct{ MaxLength int }

const asciiAlphanum = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

func (s *StringSampler) Sample(r *rand.Rand) core.Value {
	max := s.MaxLength
	if max <= 0 {
		max = 20
	}
	n := 1 + r.IntN(max)
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = asciiAlphanum[r.IntN(len(asciiAlphanum))]
	}
	return core.StringValue(string(buf))
}

// RegexSampler draws strings matching a bounded regex (e.g. an ISBN
// CHECK's pattern), by generating directly from the parsed syntax tree
// rather than rejection sampling against StringSampler. Falls back to
// StringSampler for constructs it can't expand (anchors aside, this
// module supports the literal/char-class/repeat subset CHECK patterns
// actually need).
type RegexSampler struct {
	Pattern   string
	MaxLength int
}

func (s *RegexSampler) Sample(r *rand.Rand) core.Value {
	re, err := syntax.Parse(s.Pattern, syntax.Perl)
	if err != nil {
		return (&StringSampler{MaxLength: s.MaxLength}).Sample(r)
	}
	var sb strings.Builder
	if !genFromRegexp(re, r, &sb, 0) {
		return (&StringSampler{MaxLength: s.MaxLength}).Sample(r)
	}
	return core.StringValue(sb.String())
}

// genFromRegexp walks a regexp/syntax tree and appends a matching string to
// sb. Returns false if it hits a construct (anchors excepted) it declines
// to expand, so the caller can fall back to a plain string.
func genFromRegexp(re *syntax.Regexp, r *rand.Rand, sb *strings.Builder, depth int) bool {
	if depth > 64 {
		return false
	}
	switch re.Op {
	case syntax.OpLiteral:
		for _, c := range re.Rune {
			sb.WriteRune(c)
		}
	case syntax.OpCharClass:
		// Rune holds [lo,hi] pairs.
		total := 0
		for i := 0; i < len(re.Rune); i += 2 {
			total += int(re.Rune[i+1]-re.Rune[i]) + 1
		}
		if total <= 0 {
			return false
		}
		pick := r.IntN(total)
		for i := 0; i < len(re.Rune); i += 2 {
			width := int(re.Rune[i+1]-re.Rune[i]) + 1
			if pick < width {
				sb.WriteRune(re.Rune[i] + rune(pick))
				break
			}
			pick -= width
		}
	case syntax.OpAnyChar, syntax.OpAnyCharNotNL:
		sb.WriteByte(asciiAlphanum[r.IntN(len(asciiAlphanum))])
	case syntax.OpConcat:
		for _, sub := range re.Sub {
			if !genFromRegexp(sub, r, sb, depth+1) {
				return false
			}
		}
	case syntax.OpCapture:
		return genFromRegexp(re.Sub[0], r, sb, depth+1)
	case syntax.OpStar:
		for i := 0; i < r.IntN(4); i++ {
			if !genFromRegexp(re.Sub[0], r, sb, depth+1) {
				return false
			}
		}
	case syntax.OpPlus:
		n := 1 + r.IntN(3)
		for i := 0; i < n; i++ {
			if !genFromRegexp(re.Sub[0], r, sb, depth+1) {
				return false
			}
		}
	case syntax.OpQuest:
		if r.IntN(2) == 0 {
			if !genFromRegexp(re.Sub[0], r, sb, depth+1) {
				return false
			}
		}
	case syntax.OpRepeat:
		lo, hi := re.Min, re.Max
		if hi < 0 {
			hi = lo + 3
		}
		if hi < lo {
			hi = lo
		}
		n := lo
		if hi > lo {
			n = lo + r.IntN(hi-lo+1)
		}
		for i := 0; i < n; i++ {
			if !genFromRegexp(re.Sub[0], r, sb, depth+1) {
				return false
			}
		}
	case syntax.OpBeginLine, syntax.OpEndLine, syntax.OpBeginText, syntax.OpEndText, syntax.OpEmptyMatch:
		// zero-width; nothing to emit
	case syntax.OpAlternate:
		return genFromRegexp(re.Sub[r.IntN(len(re.Sub))], r, sb, depth+1)
	default:
		return false
	}
	return true
}

// RealisticSampler wraps a named generator from RealisticProvider. For a
// VARCHAR/CHAR column with a declared length it truncates the output to
// that length; for every other column type the generator's string is
// returned unchanged, with no numeric clamping.
type RealisticSampler struct {
	Name     string
	Provider RealisticProvider
	Type     core.TypeTag
}

func (s *RealisticSampler) Sample(r *rand.Rand) core.Value {
	text := s.Provider.Generate(s.Name, r)
	switch s.Type.Kind {
	case core.TypeVarchar, core.TypeChar:
		if s.Type.Length > 0 && len(text) > s.Type.Length {
			text = text[:s.Type.Length]
		}
	}
	return core.StringValue(text)
}
