package validate_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erauner12/restmodel/pkg/validate"
)

type mapSource map[string]any

func (m mapSource) Field(name string) any { return m[name] }

func TestIsEmpty(t *testing.T) {
	var nilMap map[string]any
	var nilPtr *int

	tests := []struct {
		name  string
		value any
		want  bool
	}{
		{"nil", nil, true},
		{"typed nil pointer", nilPtr, true},
		{"empty string", "", true},
		{"whitespace string", " \t\n", true},
		{"text", "a", false},
		{"empty slice", []any{}, true},
		{"slice", []int{1}, false},
		{"nil map", nilMap, true},
		{"empty map", map[string]any{}, true},
		{"map", map[string]any{"a": 1}, false},
		{"time", time.Now(), true},
		{"time pointer", &time.Time{}, true},
		{"zero int", 0, false},
		{"false", false, false},
		{"function", func() {}, false},
		{"empty struct", struct{}{}, true},
		{"struct", struct{ A int }{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, validate.IsEmpty(tt.value))
		})
	}
}

func TestEngine_Evaluate(t *testing.T) {
	t.Run("valid source yields nil result", func(t *testing.T) {
		src := mapSource{"name": "alice", "password": "abc1"}
		engine := validate.NewEngine(src, nil, nil)

		result, err := engine.Evaluate(validate.Rules{
			"name":     {"empty": {"message": "name is required"}},
			"password": {"password": {"message": "weak password"}},
		}, nil)

		require.NoError(t, err)
		assert.Nil(t, result)
		assert.Nil(t, engine.Errors())
		assert.Equal(t, "", engine.FirstError("name", 0))
	})

	t.Run("failures are grouped by field", func(t *testing.T) {
		src := mapSource{"name": "  ", "password": "abc"}
		engine := validate.NewEngine(src, nil, nil)

		result, err := engine.Evaluate(validate.Rules{
			"name":     {"empty": {"message": "name is required"}},
			"password": {"empty": {"message": "password is required"}, "password": {"message": "weak password"}},
		}, nil)

		require.NoError(t, err)
		require.NotNil(t, result)
		assert.Equal(t, []string{"name", "password"}, result.Fields())
		assert.Equal(t, []string{"weak password"}, result.Messages("password"))

		e := result["name"][0]
		assert.Equal(t, "name", e.Field)
		assert.Equal(t, "empty", e.Rule)
		assert.Equal(t, "  ", e.Value)
		assert.Equal(t, "name is required", e.Message)
		assert.Equal(t, "name is required", e.RawOptions.Message())

		assert.Equal(t, "weak password", engine.FirstError("password", 0))
		assert.True(t, result.Has("password"))
		assert.False(t, result.Has("email"))
	})

	t.Run("fields without validators are skipped", func(t *testing.T) {
		engine := validate.NewEngine(mapSource{}, nil, nil)
		result, err := engine.Evaluate(validate.Rules{"name": {}}, nil)
		require.NoError(t, err)
		assert.Nil(t, result)
	})

	t.Run("unknown validator is a configuration error", func(t *testing.T) {
		engine := validate.NewEngine(mapSource{"name": ""}, nil, nil)

		_, err := engine.Evaluate(validate.Rules{"name": {"empty": {"message": "x"}}}, nil)
		require.NoError(t, err)
		require.NotNil(t, engine.Errors())

		_, err = engine.Evaluate(validate.Rules{"name": {"nope": {"message": "x"}}}, nil)
		require.Error(t, err)
		assert.True(t, errors.Is(err, validate.ErrUnknownValidator))
		assert.Contains(t, err.Error(), "Unknown validator nope")
		assert.NotNil(t, engine.Errors(), "stored result must survive an aborted evaluation")
	})

	t.Run("structured values are cloned", func(t *testing.T) {
		tags := []any{"a"}
		src := mapSource{"tags": tags}

		registry := validate.NewRegistry()
		registry.MustRegister("mutate", func(value any, opts validate.Options) string {
			if s, ok := value.([]any); ok && len(s) > 0 {
				s[0] = "changed"
			}
			return opts.Message()
		})

		engine := validate.NewEngine(src, registry, nil)
		result, err := engine.Evaluate(validate.Rules{"tags": {"mutate": {"message": "m"}}}, nil)

		require.NoError(t, err)
		assert.Equal(t, "a", tags[0])
		assert.Equal(t, []any{"changed"}, result["tags"][0].Value)
	})

	t.Run("engine options act as validator defaults", func(t *testing.T) {
		engine := validate.NewEngine(mapSource{}, nil, validate.Options{"message": "required"})
		result, err := engine.Evaluate(validate.Rules{"name": {"empty": nil}}, nil)
		require.NoError(t, err)
		assert.Equal(t, "required", engine.FirstError("name", 0))
		assert.Nil(t, result["name"][0].RawOptions)
	})
}

func TestEngine_FirstErrorOutOfRange(t *testing.T) {
	engine := validate.NewEngine(mapSource{}, nil, nil)
	_, err := engine.Evaluate(validate.Rules{"name": {"empty": {"message": "required"}}}, nil)
	require.NoError(t, err)

	assert.Panics(t, func() { engine.FirstError("name", 1) })
}

func TestRegistry(t *testing.T) {
	r := validate.NewRegistry()
	assert.Equal(t, []string{"empty", "idROC", "password"}, r.Names())

	err := r.Register("empty", validate.Empty)
	assert.ErrorIs(t, err, validate.ErrDuplicateValidator)

	err = r.Register("nil", nil)
	assert.ErrorIs(t, err, validate.ErrNilValidator)

	require.NoError(t, r.Register("always", func(any, validate.Options) string { return "no" }))
	fn, ok := r.Lookup("always")
	require.True(t, ok)
	assert.Equal(t, "no", fn(nil, nil))
}

func TestPassword(t *testing.T) {
	opts := validate.Options{"message": "weak"}

	assert.Equal(t, "weak", validate.Password("abc", opts))
	assert.Equal(t, "", validate.Password("abc1", opts))
	assert.Equal(t, "weak", validate.Password("1234", opts))
	assert.Equal(t, "", validate.Password("A9", opts))
	assert.Equal(t, "weak", validate.Password(12345, opts))
}

func TestIDROC(t *testing.T) {
	opts := validate.Options{"message": "invalid id"}

	tests := []struct {
		value any
		valid bool
	}{
		{"A123456789", true},
		{"a123456789", true},
		{"A123456788", false},
		{"A323456789", false},
		{"A12345678", false},
		{"1123456789", false},
		{nil, false},
	}

	for _, tt := range tests {
		msg := validate.IDROC(tt.value, opts)
		if tt.valid {
			assert.Empty(t, msg, "value %v", tt.value)
		} else {
			assert.Equal(t, "invalid id", msg, "value %v", tt.value)
		}
	}
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "Unknown validator foo", validate.Format("Unknown validator %{name}", map[string]any{"name": "foo"}))
	assert.Equal(t, "keep %{name}", validate.Format("keep %%{name}", map[string]any{"name": "foo"}))
}

func TestResult_Error(t *testing.T) {
	r := validate.Result{
		"b": {{Field: "b", Message: "bad b"}},
		"a": {{Field: "a", Message: "bad a"}},
	}
	assert.Equal(t, "validation failed: a: bad a; b: bad b", r.Error())
}
