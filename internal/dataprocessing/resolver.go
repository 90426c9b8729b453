package dataprocessing

import (
	"context"
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	apperrors "statementcheck/internal/errors"
	"statementcheck/pkg/contracts/domain"
)

// labelMatcher tests a lower-cased, trimmed column label.
type labelMatcher func(label string) bool

// rule is one entry of a role's ordered rule table. Rules are evaluated by
// ascending priority; within a rule the leftmost unbound column wins.
type rule struct {
	priority int
	desc     string
	match    labelMatcher
}

func exact(want string) labelMatcher {
	return func(label string) bool { return label == want }
}

func contains(sub string) labelMatcher {
	return func(label string) bool { return strings.Contains(label, sub) }
}

func containsExcept(sub string, except ...string) labelMatcher {
	return func(label string) bool {
		if !strings.Contains(label, sub) {
			return false
		}
		for _, e := range except {
			if strings.Contains(label, e) {
				return false
			}
		}
		return true
	}
}

// secondTime matches the repeated "Time" label of statements that carry open
// and close timestamps under the same name: "Time (1)", "Time_1", "time 1".
var secondTime = regexp.MustCompile(`^time\s*(\(\s*1\s*\)|[._ ]\s*1)$`)

// labelRules holds the label rule table of every role except profit, which is
// scored on content. Roles are resolved in domain.Roles() order, so close_time
// claims "Time.1" before open_time looks at "Time".
var labelRules = map[domain.Role][]rule{
	domain.RoleCloseTime: {
		{priority: 1, desc: `exact "time.1"`, match: exact("time.1")},
		{priority: 2, desc: `exact "close time"`, match: exact("close time")},
		{priority: 3, desc: `exact "close"`, match: exact("close")},
		{priority: 4, desc: `contains "close"`, match: containsExcept("close", "price")},
		{priority: 5, desc: "second time column", match: secondTime.MatchString},
	},
	domain.RoleOpenTime: {
		{priority: 1, desc: `exact "time"`, match: exact("time")},
		{priority: 2, desc: `contains "open time"`, match: contains("open time")},
		{priority: 3, desc: `exact "open"`, match: exact("open")},
	},
	domain.RoleSymbol: {
		{priority: 1, desc: `contains "symbol"`, match: contains("symbol")},
		{priority: 2, desc: `exact "item"`, match: exact("item")},
	},
	domain.RoleSwap: {
		{priority: 1, desc: `contains "swap"`, match: contains("swap")},
	},
	domain.RoleCommission: {
		{priority: 1, desc: `contains "commission"`, match: contains("commission")},
		{priority: 2, desc: `contains "comm"`, match: containsExcept("comm", "comment")},
	},
}

// ColumnResolver maps statement columns onto semantic roles.
type ColumnResolver struct {
	logger     *slog.Logger
	thresholds Thresholds
}

// NewColumnResolver creates a resolver. A nil logger uses slog.Default().
func NewColumnResolver(logger *slog.Logger, thresholds Thresholds) *ColumnResolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &ColumnResolver{
		logger:     logger.With(slog.String("component", "column_resolver")),
		thresholds: thresholds.withDefaults(),
	}
}

// Resolve binds every role it can. It fails with a missing-column error when
// neither time role or the profit role resolves. A column is bound to at most
// one role.
func (r *ColumnResolver) Resolve(ctx context.Context, name string, table *domain.RawTable) (domain.ColumnRoleMap, error) {
	roles := domain.NewColumnRoleMap()
	lower := make([]string, len(table.Labels))
	for i, l := range table.Labels {
		lower[i] = strings.ToLower(strings.TrimSpace(l))
	}

	for _, role := range domain.Roles() {
		rules, ok := labelRules[role]
		if !ok {
			continue
		}
		if col, desc, ok := matchRules(rules, lower, roles); ok {
			roles.Bind(role, domain.ColumnRef{Index: col, Label: table.Labels[col]})
			r.logger.DebugContext(ctx, "column resolved",
				slog.String("file", name),
				slog.String("role", string(role)),
				slog.String("label", table.Labels[col]),
				slog.String("rule", desc))
		}
	}

	if !roles.Has(domain.RoleOpenTime) && !roles.Has(domain.RoleCloseTime) {
		r.detectTimeColumns(ctx, name, table, &roles)
	}
	if !roles.Has(domain.RoleOpenTime) && !roles.Has(domain.RoleCloseTime) {
		return roles, apperrors.NewMissingColumnError(name, string(domain.RoleTime))
	}

	col, ok := r.resolveProfit(table, lower, roles)
	if !ok {
		return roles, apperrors.NewMissingColumnError(name, string(domain.RoleProfit))
	}
	roles.Bind(domain.RoleProfit, domain.ColumnRef{Index: col, Label: table.Labels[col]})
	r.logger.DebugContext(ctx, "column resolved",
		slog.String("file", name),
		slog.String("role", string(domain.RoleProfit)),
		slog.String("label", table.Labels[col]))

	return roles, nil
}

func matchRules(rules []rule, labels []string, bound domain.ColumnRoleMap) (int, string, bool) {
	ordered := make([]rule, len(rules))
	copy(ordered, rules)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].priority < ordered[j].priority })

	for _, rl := range ordered {
		for col, label := range labels {
			if bound.IsBound(col) {
				continue
			}
			if rl.match(label) {
				return col, rl.desc, true
			}
		}
	}
	return -1, "", false
}

// detectTimeColumns binds unlabeled time columns by content: the first column
// whose cells look like timestamps becomes open_time, the second close_time.
func (r *ColumnResolver) detectTimeColumns(ctx context.Context, name string, table *domain.RawTable, roles *domain.ColumnRoleMap) {
	found := 0
	for col := range table.Labels {
		if roles.IsBound(col) {
			continue
		}
		ratio := timestampRatio(table.Column(col))
		if ratio < r.thresholds.TimeColumnMinRatio {
			continue
		}
		role := domain.RoleOpenTime
		if found == 1 {
			role = domain.RoleCloseTime
		}
		roles.Bind(role, domain.ColumnRef{Index: col, Label: table.Labels[col]})
		r.logger.DebugContext(ctx, "time column detected by content",
			slog.String("file", name),
			slog.String("role", string(role)),
			slog.String("label", table.Labels[col]),
			slog.Float64("ratio", ratio))
		found++
		if found == 2 {
			return
		}
	}
}

// columnScore summarizes the numeric content of a column.
type columnScore struct {
	col         int
	numeric     bool
	medianAbs   decimal.Decimal
	negFraction float64
	smallFrac   float64
	hasNegative bool
}

func (r *ColumnResolver) score(col int, values []string) columnScore {
	s := columnScore{col: col}
	var abs []decimal.Decimal
	nonEmpty, negatives, small := 0, 0, 0
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			continue
		}
		nonEmpty++
		d, ok := ParseNumber(v)
		if !ok {
			continue
		}
		if d.IsNegative() {
			negatives++
		}
		a := d.Abs()
		if a.LessThan(r.thresholds.SmallValueThreshold) {
			small++
		}
		abs = append(abs, a)
	}
	if nonEmpty == 0 || len(abs) == 0 {
		return s
	}

	s.numeric = float64(len(abs))/float64(nonEmpty) >= r.thresholds.NumericMinRatio
	s.medianAbs = median(abs)
	s.negFraction = float64(negatives) / float64(len(abs))
	s.smallFrac = float64(small) / float64(len(abs))
	s.hasNegative = negatives > 0
	return s
}

func median(values []decimal.Decimal) decimal.Decimal {
	sorted := make([]decimal.Decimal, len(values))
	copy(sorted, values)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].LessThan(sorted[j]) })
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return sorted[mid-1].Add(sorted[mid]).Div(decimal.NewFromInt(2))
}

// resolveProfit prefers labels mentioning profit. Several such labels are
// ranked by smallest median magnitude, then by share of negative values. With
// no profit label, any numeric column may qualify and columns that hold losses
// and mostly small values are preferred.
func (r *ColumnResolver) resolveProfit(table *domain.RawTable, labels []string, bound domain.ColumnRoleMap) (int, bool) {
	var labeled []int
	for col, label := range labels {
		if !bound.IsBound(col) && strings.Contains(label, "profit") {
			labeled = append(labeled, col)
		}
	}

	switch len(labeled) {
	case 0:
	case 1:
		return labeled[0], true
	default:
		var scores []columnScore
		for _, col := range labeled {
			if s := r.score(col, table.Column(col)); s.numeric {
				scores = append(scores, s)
			}
		}
		if len(scores) == 0 {
			return labeled[0], true
		}
		sort.SliceStable(scores, func(i, j int) bool {
			a, b := scores[i], scores[j]
			if c := a.medianAbs.Cmp(b.medianAbs); c != 0 {
				return c < 0
			}
			if a.negFraction != b.negFraction {
				return a.negFraction > b.negFraction
			}
			return a.col < b.col
		})
		return scores[0].col, true
	}

	var scores []columnScore
	for col := range labels {
		if bound.IsBound(col) {
			continue
		}
		if s := r.score(col, table.Column(col)); s.numeric {
			scores = append(scores, s)
		}
	}
	if len(scores) == 0 {
		return -1, false
	}

	minSmall := r.thresholds.SmallValueMinRatio
	sort.SliceStable(scores, func(i, j int) bool {
		a, b := scores[i], scores[j]
		if a.hasNegative != b.hasNegative {
			return a.hasNegative
		}
		aSmall, bSmall := a.smallFrac >= minSmall, b.smallFrac >= minSmall
		if aSmall != bSmall {
			return aSmall
		}
		if c := a.medianAbs.Cmp(b.medianAbs); c != 0 {
			return c < 0
		}
		if a.negFraction != b.negFraction {
			return a.negFraction > b.negFraction
		}
		return a.col < b.col
	})
	return scores[0].col, true
}
