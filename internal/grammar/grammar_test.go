package grammar

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAxis(t *testing.T) {
	for a := Axis(0); a < NumAxes; a++ {
		got, ok := ParseAxis(a.String())
		require.True(t, ok)
		assert.Equal(t, a, got)
	}
	_, ok := ParseAxis("sprite")
	assert.False(t, ok)
}

func TestParseDefaultOrder(t *testing.T) {
	order, vector, res := Parse("sheet,object,camera,track,angle,frame", "-,v,h,v,v,h")
	require.True(t, res.OK(), "unexpected errors: %v", res.Errors)

	want := GroupOrder{AxisSheet, AxisObject, AxisCamera, AxisTrack, AxisAngle, AxisFrame}
	assert.Equal(t, want, order)
	assert.Equal(t, OrientNone, vector[0])
	assert.Equal(t, OrientVertical, vector[1])
	assert.Equal(t, OrientHorizontal, vector[2])
}

func TestParseOrderWhitespace(t *testing.T) {
	_, _, res := Parse("sheet, object, camera, track, angle, frame", "-,v,h,v,v,h")
	assert.True(t, res.OK(), "unexpected errors: %v", res.Errors)
}

func TestParseOrderPermutations(t *testing.T) {
	valid := []string{
		"sheet,camera,object,angle,track,frame",
		"sheet,object,track,frame,camera,angle",
		"sheet,angle,camera,object,track,frame",
	}
	for _, s := range valid {
		_, _, res := Parse(s, "-,v,h,v,v,h")
		assert.True(t, res.OK(), "order %q: %v", s, res.Errors)
	}
}

func TestParseOrderRejections(t *testing.T) {
	cases := []struct {
		name  string
		order string
	}{
		{"sheet not first", "object,sheet,camera,track,angle,frame"},
		{"object before sheet", "object,camera,sheet,track,angle,frame"},
		{"track before object", "sheet,track,object,camera,angle,frame"},
		{"frame before track", "sheet,object,camera,frame,track,angle"},
		{"duplicate axis", "sheet,object,object,track,angle,frame"},
		{"unknown token", "sheet,object,camera,track,angle,sprite"},
		{"too few tokens", "sheet,object,camera"},
		{"empty", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, res := Parse(tc.order, "-,v,h,v,v,h")
			assert.False(t, res.OK())
			for _, fe := range res.Errors {
				assert.Equal(t, "group_order", fe.Field)
			}
		})
	}
}

func TestParseOrientationRejections(t *testing.T) {
	cases := []struct {
		name   string
		orient string
	}{
		{"too short", "-,v,h"},
		{"bad symbol", "-,v,h,v,v,x"},
		{"sheet entry not dash", "h,v,h,v,v,h"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, res := Parse("sheet,object,camera,track,angle,frame", tc.orient)
			assert.False(t, res.OK())
			for _, fe := range res.Errors {
				assert.Equal(t, "orientation", fe.Field)
			}
		})
	}
}

func TestOrientationErrorSkipsAxisForBadOrder(t *testing.T) {
	// With an unparseable order the axis at each position is unknown, so
	// the orientation error names only the entry position.
	_, _, res := Parse("sheet,object,camera,track,angle,sprite", "-,v,h,v,v,-")
	require.False(t, res.OK())

	found := false
	for _, fe := range res.Errors {
		if fe.Field != "orientation" {
			continue
		}
		found = true
		assert.Equal(t, "entry 6 must be 'h' or 'v'", fe.Msg)
	}
	assert.True(t, found, "expected an orientation error: %v", res.Errors)

	// With a valid order the same failure names the axis.
	_, _, res = Parse("sheet,object,camera,track,angle,frame", "-,v,h,v,v,-")
	require.False(t, res.OK())
	require.Len(t, res.Errors, 1)
	assert.Equal(t, `entry 6 ("frame") must be 'h' or 'v'`, res.Errors[0].Msg)
}

func TestParseCollectsAllErrors(t *testing.T) {
	_, _, res := Parse("object,sheet,camera,track,angle,sprite", "h,v")
	require.False(t, res.OK())
	assert.GreaterOrEqual(t, len(res.Errors), 2)
}

func TestPositionOf(t *testing.T) {
	order, _, res := Parse("sheet,camera,object,angle,track,frame", "-,v,h,v,v,h")
	require.True(t, res.OK())
	assert.Equal(t, 0, order.PositionOf(AxisSheet))
	assert.Equal(t, 2, order.PositionOf(AxisObject))
	assert.Equal(t, 5, order.PositionOf(AxisFrame))
}

func TestLeafPath(t *testing.T) {
	assert.Equal(t, "", LeafPath(nil))
	assert.Equal(t, "hero.png", LeafPath([]string{"hero"}))
	assert.Equal(t,
		"hero/walk/hero_walk_090.png",
		LeafPath([]string{"hero", "walk", "090"}))
	assert.Equal(t,
		"out/hero/cam/run/045/out_hero_cam_run_045_003.png",
		LeafPath([]string{"out", "hero", "cam", "run", "045", "003"}))
}

func TestAxisClasses(t *testing.T) {
	assert.True(t, AxisAngle.Numeric())
	assert.True(t, AxisFrame.Numeric())
	assert.False(t, AxisObject.Numeric())
	assert.True(t, AxisTrack.Optional())
	assert.True(t, AxisFrame.Optional())
	assert.False(t, AxisSheet.Optional())
}
