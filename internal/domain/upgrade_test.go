package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nodeV9 struct{}

func (nodeV9) NodeVersion() int { return 9 }
func (nodeV9) versionedNode()   {}

func TestUpgradeNode(t *testing.T) {
	got, err := UpgradeNode(NodeV1{ID: 3, Content: "legacy"})
	require.NoError(t, err)
	assert.True(t, NewNode(3, "legacy").Equal(got), "got %+v", got)

	props := Properties{"k": String("v")}
	got, err = UpgradeNode(NodeV2{ID: 4, Type: NodeTypeSIMO, Content: "c", Properties: props})
	require.NoError(t, err)
	assert.Equal(t, LatestNodeVersion, got.Version)
	assert.Equal(t, NodeTypeSIMO, got.Type)
	assert.True(t, props.Equal(got.Properties))

	_, err = UpgradeNode(nodeV9{})
	assert.ErrorIs(t, err, ErrUnsupportedVersion)
}

func TestUpgradeEdge(t *testing.T) {
	got, err := UpgradeEdge(EdgeV1{From: 1, To: 2, Weight: 3, EdgeContent: "old"})
	require.NoError(t, err)
	assert.Equal(t, "old", got.Content)
	assert.Equal(t, LatestEdgeVersion, got.Version)
	assert.Equal(t, EdgeKey{From: 1, To: 2}, got.Key())
}

func TestNodeAndEdgeValidate(t *testing.T) {
	assert.NoError(t, NewNode(0, "").Validate())
	assert.ErrorIs(t, NewNode(-1, "x").Validate(), ErrInvalidID)

	n := NewNode(1, "x")
	n.Properties = Properties{"": String("v")}
	assert.ErrorIs(t, n.Validate(), ErrInvalidInput)

	n.Properties = Properties{"k": {}}
	assert.ErrorIs(t, n.Validate(), ErrInvalidInput)

	assert.NoError(t, NewEdge(1, 1, -2.5, "").Validate())
	assert.ErrorIs(t, NewEdge(1, 2, math.NaN(), "").Validate(), ErrInvalidInput)
	assert.ErrorIs(t, NewEdge(1, 2, math.Inf(1), "").Validate(), ErrInvalidInput)
	assert.ErrorIs(t, NewEdge(-1, 2, 1, "").Validate(), ErrInvalidID)
}

func TestValueFromAny(t *testing.T) {
	v, err := ValueFromAny(map[string]any{"a": int8(3), "b": "x", "c": true})
	require.NoError(t, err)
	want := Map(map[string]Value{"a": Number(3), "b": String("x"), "c": Bool(true)})
	assert.True(t, want.Equal(v), "got %s", v)
	assert.Equal(t, `{a: 3, b: "x", c: true}`, v.String())

	_, err = ValueFromAny([]any{1})
	assert.Error(t, err)

	props, err := PropertiesFromAny(nil)
	require.NoError(t, err)
	assert.Nil(t, props)
	assert.Nil(t, Properties{}.Any())
}
