package aci

import (
	"net/url"
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestQuerySettingsDefaults(t *testing.T) {
	c := qt.New(t)

	c.Assert(NewQuerySettings().Values(), qt.DeepEquals, url.Values{
		"query-target":     {"subtree"},
		"rsp-subtree":      {"full"},
		"rsp-prop-include": {"all"},
	})
}

func TestQuerySettingsScopes(t *testing.T) {
	c := qt.New(t)

	values := NewQuerySettings().
		QueryTarget(QueryTargetChildren).
		ResponseSubtree(ResponseSubtreeChildren).
		ResponsePropertyInclude(PropertyIncludeNamingOnly).
		Values()
	c.Assert(values.Get("query-target"), qt.Equals, "children")
	c.Assert(values.Get("rsp-subtree"), qt.Equals, "children")
	c.Assert(values.Get("rsp-prop-include"), qt.Equals, "naming-only")

	values = NewQuerySettings().
		QueryTarget(QueryTargetSelf).
		ResponseSubtree(ResponseSubtreeSelf).
		ResponsePropertyInclude(PropertyIncludeConfigOnly).
		Values()
	c.Assert(values.Get("query-target"), qt.Equals, "self")
	c.Assert(values.Get("rsp-subtree"), qt.Equals, "self")
	c.Assert(values.Get("rsp-prop-include"), qt.Equals, "config-only")
}

func TestQuerySettingsTargetFilter(t *testing.T) {
	c := qt.New(t)

	filter := `eq(fvTenant.name,"T")`
	values := NewQuerySettings().QueryTargetFilter(filter).Values()
	c.Assert(values.Get("query-target-filter"), qt.Equals, filter)

	values = NewQuerySettings().QueryTargetFilter(filter).QueryTargetFilterAny().Values()
	_, present := values["query-target-filter"]
	c.Assert(present, qt.IsFalse)
}

func TestQuerySettingsSubtreeClasses(t *testing.T) {
	c := qt.New(t)

	values := NewQuerySettings().ResponseSubtreeClasses("fvBD", "fvAp").Values()
	c.Assert(values.Get("rsp-subtree-class"), qt.Equals, "fvAp,fvBD")

	values = NewQuerySettings().ResponseSubtreeClasses("fvBD").ResponseSubtreeClassesAll().Values()
	_, present := values["rsp-subtree-class"]
	c.Assert(present, qt.IsFalse)
}

func TestQuerySettingsSubtreeIncludeOrder(t *testing.T) {
	c := qt.New(t)

	// emission order is fixed regardless of how the flags were combined
	values := NewQuerySettings().
		ResponseSubtreeInclude(IncludeRequired | IncludeFaults | IncludeAuditLogs).
		Values()
	c.Assert(values.Get("rsp-subtree-include"), qt.Equals, "audit-logs,faults,required")

	all := IncludeAuditLogs | IncludeEventLogs | IncludeFaults | IncludeFaultRecords |
		IncludeHealth | IncludeHealthRecords | IncludeRelations | IncludeStats |
		IncludeTasks | IncludeCount | IncludeNoScoped | IncludeRequired
	values = NewQuerySettings().ResponseSubtreeInclude(all).Values()
	c.Assert(values.Get("rsp-subtree-include"), qt.Equals,
		"audit-logs,event-logs,faults,fault-records,health,health-records,relations,stats,tasks,count,no-scoped,required")

	values = NewQuerySettings().ResponseSubtreeInclude(IncludeFaults).ResponseSubtreeIncludeAll().Values()
	_, present := values["rsp-subtree-include"]
	c.Assert(present, qt.IsFalse)
}

func TestQuerySettingsValueSemantics(t *testing.T) {
	c := qt.New(t)

	base := NewQuerySettings()
	derived := base.QueryTargetFilter("x").ResponseSubtreeClasses("fvAp")
	_, present := base.Values()["query-target-filter"]
	c.Assert(present, qt.IsFalse)
	c.Assert(derived.Values().Get("query-target-filter"), qt.Equals, "x")
}
