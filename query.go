package aci

import (
	"net/url"
	"sort"
	"strings"
)

// QueryTarget defines the scope of a query: which part of the object tree
// to search relative to the base Distinguished Name.
type QueryTarget int

const (
	// QueryTargetSelf considers the object with the specified DN.
	QueryTargetSelf QueryTarget = iota

	// QueryTargetChildren considers the children of the object with the
	// specified DN.
	QueryTargetChildren

	// QueryTargetSubtree considers all descendants of the object with the
	// specified DN.
	QueryTargetSubtree
)

func (t QueryTarget) restValue() string {
	switch t {
	case QueryTargetSelf:
		return "self"
	case QueryTargetChildren:
		return "children"
	default:
		return "subtree"
	}
}

// ResponseSubtree defines the scope of a query's return value: which part
// of the object tree to return for each object that has been found.
type ResponseSubtree int

const (
	// ResponseSubtreeSelf returns only the found object.
	ResponseSubtreeSelf ResponseSubtree = iota

	// ResponseSubtreeChildren returns only the found object's children.
	ResponseSubtreeChildren

	// ResponseSubtreeFull returns the found object and its descendants.
	ResponseSubtreeFull
)

func (s ResponseSubtree) restValue() string {
	switch s {
	case ResponseSubtreeSelf:
		return "self"
	case ResponseSubtreeChildren:
		return "children"
	default:
		return "full"
	}
}

// ResponseSubtreeInclude is a set of flags selecting which additional
// object categories to return for each object. Not every combination is
// meaningful to the controller; the library emits whatever is set.
type ResponseSubtreeInclude uint64

const (
	// IncludeAuditLogs returns subtrees with the history of user
	// modifications to managed objects.
	IncludeAuditLogs ResponseSubtreeInclude = 1 << iota

	// IncludeEventLogs returns subtrees with event history information.
	IncludeEventLogs

	// IncludeFaults returns subtrees with currently active faults.
	IncludeFaults

	// IncludeFaultRecords returns subtrees with fault history information.
	IncludeFaultRecords

	// IncludeHealth returns subtrees with current health information.
	IncludeHealth

	// IncludeHealthRecords returns subtrees with health history
	// information.
	IncludeHealthRecords

	// IncludeRelations returns relation-related subtrees.
	IncludeRelations

	// IncludeStats returns statistics-related subtrees.
	IncludeStats

	// IncludeTasks returns task-related subtrees.
	IncludeTasks

	// IncludeCount returns a count of matching subtrees but not the
	// subtrees themselves.
	IncludeCount

	// IncludeNoScoped returns only the requested subtree information, no
	// other top-level managed object information.
	IncludeNoScoped

	// IncludeRequired returns only those managed objects that have
	// subtrees matching the specified category.
	IncludeRequired
)

// includeTokens fixes the wire order of the include flags.
var includeTokens = []struct {
	flag  ResponseSubtreeInclude
	token string
}{
	{IncludeAuditLogs, "audit-logs"},
	{IncludeEventLogs, "event-logs"},
	{IncludeFaults, "faults"},
	{IncludeFaultRecords, "fault-records"},
	{IncludeHealth, "health"},
	{IncludeHealthRecords, "health-records"},
	{IncludeRelations, "relations"},
	{IncludeStats, "stats"},
	{IncludeTasks, "tasks"},
	{IncludeCount, "count"},
	{IncludeNoScoped, "no-scoped"},
	{IncludeRequired, "required"},
}

func (inc ResponseSubtreeInclude) restValue() string {
	var tokens []string
	for _, it := range includeTokens {
		if inc&it.flag != 0 {
			tokens = append(tokens, it.token)
		}
	}
	return strings.Join(tokens, ",")
}

// ResponsePropertyInclude defines which properties to include in the
// response.
type ResponsePropertyInclude int

const (
	// PropertyIncludeAll returns all properties of each managed object.
	PropertyIncludeAll ResponsePropertyInclude = iota

	// PropertyIncludeNamingOnly returns only the naming properties of
	// each managed object.
	PropertyIncludeNamingOnly

	// PropertyIncludeConfigOnly returns only the configurable properties
	// of each managed object.
	PropertyIncludeConfigOnly
)

func (p ResponsePropertyInclude) restValue() string {
	switch p {
	case PropertyIncludeNamingOnly:
		return "naming-only"
	case PropertyIncludeConfigOnly:
		return "config-only"
	default:
		return "all"
	}
}

// QuerySettings collects the settings of a tree-scoped query. The zero
// value is not meaningful; start from NewQuerySettings. Every setter
// returns a modified copy, so settings can be chained and shared freely
// between goroutines.
type QuerySettings struct {
	queryTarget             QueryTarget
	queryTargetFilter       string
	responseSubtree         ResponseSubtree
	responseSubtreeClasses  []string
	responseSubtreeInclude  ResponseSubtreeInclude
	responsePropertyInclude ResponsePropertyInclude
}

// NewQuerySettings returns query settings with the common defaults:
// subtree target, full response subtree, all properties, and no optional
// filters.
func NewQuerySettings() QuerySettings {
	return QuerySettings{
		queryTarget:             QueryTargetSubtree,
		responseSubtree:         ResponseSubtreeFull,
		responsePropertyInclude: PropertyIncludeAll,
	}
}

// QueryTarget sets the target scope of the query.
func (qs QuerySettings) QueryTarget(target QueryTarget) QuerySettings {
	qs.queryTarget = target
	return qs
}

// QueryTargetFilter sets the target filter of the query. The filter
// string is passed to the controller verbatim.
func (qs QuerySettings) QueryTargetFilter(filter string) QuerySettings {
	qs.queryTargetFilter = filter
	return qs
}

// QueryTargetFilterAny unsets the target filter of the query.
func (qs QuerySettings) QueryTargetFilterAny() QuerySettings {
	qs.queryTargetFilter = ""
	return qs
}

// ResponseSubtree sets the form of the response subtree.
func (qs QuerySettings) ResponseSubtree(subtree ResponseSubtree) QuerySettings {
	qs.responseSubtree = subtree
	return qs
}

// ResponseSubtreeClasses restricts the returned subtree to the given
// class names.
func (qs QuerySettings) ResponseSubtreeClasses(classes ...string) QuerySettings {
	dup := make([]string, len(classes))
	copy(dup, classes)
	sort.Strings(dup)
	qs.responseSubtreeClasses = dup
	return qs
}

// ResponseSubtreeClassesAll removes the class restriction on the
// returned subtree.
func (qs QuerySettings) ResponseSubtreeClassesAll() QuerySettings {
	qs.responseSubtreeClasses = nil
	return qs
}

// ResponseSubtreeInclude sets which additional object categories to
// return.
func (qs QuerySettings) ResponseSubtreeInclude(include ResponseSubtreeInclude) QuerySettings {
	qs.responseSubtreeInclude = include
	return qs
}

// ResponseSubtreeIncludeAll removes the category restriction.
func (qs QuerySettings) ResponseSubtreeIncludeAll() QuerySettings {
	qs.responseSubtreeInclude = 0
	return qs
}

// ResponsePropertyInclude sets which kind of properties to return.
func (qs QuerySettings) ResponsePropertyInclude(include ResponsePropertyInclude) QuerySettings {
	qs.responsePropertyInclude = include
	return qs
}

// Values serialises the settings into wire-level query parameters. The
// server is insensitive to parameter order.
func (qs QuerySettings) Values() url.Values {
	v := url.Values{}
	v.Set("query-target", qs.queryTarget.restValue())
	if qs.queryTargetFilter != "" {
		v.Set("query-target-filter", qs.queryTargetFilter)
	}
	v.Set("rsp-subtree", qs.responseSubtree.restValue())
	if len(qs.responseSubtreeClasses) > 0 {
		v.Set("rsp-subtree-class", strings.Join(qs.responseSubtreeClasses, ","))
	}
	if qs.responseSubtreeInclude != 0 {
		v.Set("rsp-subtree-include", qs.responseSubtreeInclude.restValue())
	}
	v.Set("rsp-prop-include", qs.responsePropertyInclude.restValue())
	return v
}
