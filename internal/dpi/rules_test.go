package dpi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRuleEngine_RemoveRule(t *testing.T) {
	re := newRuleEngine(10)
	id := re.addRule(Rule{Kind: RuleLiteral, Pattern: []byte("x"), Enabled: true, AppliesToRequest: true})
	require.NotZero(t, id)

	assert.True(t, re.removeRule(id))
	assert.False(t, re.removeRule(id))

	matches := re.evaluate(ProtoUnknown, 80, 1000, false, []byte("x"))
	assert.Empty(t, matches)
}

func TestRuleEngine_CapacityExhaustionReturnsZero(t *testing.T) {
	re := newRuleEngine(1)
	first := re.addRule(Rule{Kind: RuleLiteral, Pattern: []byte("a"), Enabled: true})
	require.NotZero(t, first)

	second := re.addRule(Rule{Kind: RuleLiteral, Pattern: []byte("b"), Enabled: true})
	assert.Zero(t, second)
}

func TestRuleEngine_DisabledRuleNeverMatches(t *testing.T) {
	re := newRuleEngine(10)
	re.addRule(Rule{Kind: RuleLiteral, Pattern: []byte("x"), Enabled: false, AppliesToRequest: true})

	matches := re.evaluate(ProtoUnknown, 80, 1000, false, []byte("x"))
	assert.Empty(t, matches)
}

func TestRuleEngine_PortRangeScoping(t *testing.T) {
	re := newRuleEngine(10)
	re.addRule(Rule{
		Kind: RuleLiteral, Pattern: []byte("x"), Enabled: true, AppliesToRequest: true,
		PortRangeStart: 8000, PortRangeEnd: 8100,
	})

	assert.Empty(t, re.evaluate(ProtoUnknown, 80, 1000, false, []byte("x")))
	assert.NotEmpty(t, re.evaluate(ProtoUnknown, 8050, 1000, false, []byte("x")))
}

func TestRuleEngine_ZeroPortRangeMeansAny(t *testing.T) {
	re := newRuleEngine(10)
	re.addRule(Rule{Kind: RuleLiteral, Pattern: []byte("x"), Enabled: true, AppliesToRequest: true})
	assert.NotEmpty(t, re.evaluate(ProtoUnknown, 1, 2, false, []byte("x")))
}

func TestRuleEngine_DirectionScoping(t *testing.T) {
	re := newRuleEngine(10)
	re.addRule(Rule{Kind: RuleLiteral, Pattern: []byte("x"), Enabled: true, AppliesToRequest: true, AppliesToResponse: false})

	assert.NotEmpty(t, re.evaluate(ProtoUnknown, 80, 1000, false, []byte("x")))
	assert.Empty(t, re.evaluate(ProtoUnknown, 80, 1000, true, []byte("x")))
}

func TestRuleEngine_ProtocolScopeUnknownMeansAny(t *testing.T) {
	re := newRuleEngine(10)
	re.addRule(Rule{Kind: RuleLiteral, Pattern: []byte("x"), Enabled: true, AppliesToRequest: true, ProtocolScope: ProtoUnknown})
	assert.NotEmpty(t, re.evaluate(ProtoHTTP, 80, 1000, false, []byte("x")))
	assert.NotEmpty(t, re.evaluate(ProtoDNS, 53, 1000, false, []byte("x")))
}

func TestRuleEngine_RegexMatchOffset(t *testing.T) {
	re := newRuleEngine(10)
	re.addRule(Rule{Kind: RuleRegex, Pattern: []byte(`needle`), Enabled: true, AppliesToRequest: true})

	matches := re.evaluate(ProtoUnknown, 80, 1000, false, []byte("hay hay needle hay"))
	require.Len(t, matches, 1)
	assert.Equal(t, 8, matches[0].matchOffset)
}

func TestRuleEngine_RegexIsCaseInsensitive(t *testing.T) {
	re := newRuleEngine(10)
	re.addRule(Rule{Kind: RuleRegex, Pattern: []byte(`cmd\.exe`), Enabled: true, AppliesToRequest: true})

	matches := re.evaluate(ProtoUnknown, 80, 1000, false, []byte("x=CMD.EXE"))
	assert.Len(t, matches, 1)
}

func TestRuleEngine_DeclaredButNoOpKindsNeverMatch(t *testing.T) {
	re := newRuleEngine(10)
	for _, kind := range []RuleKind{RuleSnort, RuleYara, RuleBehavioral} {
		id := re.addRule(Rule{Kind: kind, Pattern: []byte("x"), Enabled: true, AppliesToRequest: true})
		require.NotZero(t, id)
	}

	assert.Empty(t, re.evaluate(ProtoUnknown, 80, 1000, false, []byte("x")))
}
