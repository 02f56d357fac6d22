package model_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erauner12/restmodel/internal/testutil"
	"github.com/erauner12/restmodel/pkg/client"
	"github.com/erauner12/restmodel/pkg/formdata"
	"github.com/erauner12/restmodel/pkg/model"
	"github.com/erauner12/restmodel/pkg/validate"
)

var (
	teamSchema = &model.Schema{Name: "team", API: "teams"}
	tagSchema  = &model.Schema{Name: "tag", API: "tags"}
)

func userSchema() *model.Schema {
	return &model.Schema{
		Name: "user",
		API:  "users",
		Defaults: func() map[string]any {
			return map[string]any{
				"name": "",
				"team": model.NewEntity(teamSchema, nil),
			}
		},
		Nested: map[string]*model.Schema{"tags": tagSchema},
		Rules: validate.Rules{
			"name":     {"empty": {"message": "name is required"}},
			"password": {"password": {"message": "password is too weak"}},
		},
	}
}

func newTestClient(baseURL string) *client.Client {
	return client.New(
		client.WithChain(client.NewChain(client.Hooks{})),
		client.WithTransport(client.NewHTTPTransport(5*time.Second, 0)),
		client.WithBaseURL(baseURL),
	)
}

func TestNewEntity_Defaults(t *testing.T) {
	e := model.NewEntity(userSchema(), nil)

	assert.Equal(t, 0, e.ID())
	assert.Equal(t, model.ModeStatic, e.Mode())
	assert.Equal(t, "id", e.PrimaryKey())
	assert.Equal(t, "users", e.API())
	assert.False(t, e.Loading())
	assert.Len(t, e.ModelID(), 36)

	snap := e.Snapshot()
	assert.Contains(t, snap, "created_at")
	assert.Contains(t, snap, "updated_at")
	assert.Contains(t, snap, "deleted_at")
	assert.Equal(t, map[string]any{
		"id": 0, "created_at": nil, "updated_at": nil, "deleted_at": nil,
	}, snap["team"])

	other := model.NewEntity(userSchema(), nil)
	assert.NotEqual(t, e.ModelID(), other.ModelID())
}

func TestNewEntity_Options(t *testing.T) {
	e := model.NewEntity(userSchema(), map[string]any{"uid": "u-1"},
		model.WithPrimaryKey("uid"),
		model.WithAPI("members"),
		model.WithBaseURL("http://api"),
		model.WithMode(model.ModeCreated),
	)

	assert.Equal(t, "u-1", e.ID())
	assert.Equal(t, "members", e.API())
	assert.Equal(t, "http://api", e.BaseURL())
	assert.Equal(t, model.ModeCreated, e.Mode())
}

func TestEntity_SetHydratesNestedFields(t *testing.T) {
	e := model.NewEntity(userSchema(), nil, model.WithBaseURL("http://api"))
	before, _ := e.GetEntity("team")

	e.Set(map[string]any{
		"name": "kim",
		"team": map[string]any{"id": 3.0, "name": "core"},
		"tags": []any{
			map[string]any{"id": 1.0, "label": "a"},
			map[string]any{"id": 2.0, "label": "b"},
		},
		"roles": []any{"admin"},
	})

	team, ok := e.GetEntity("team")
	require.True(t, ok)
	assert.NotSame(t, before, team, "nested entity is rebuilt, not mutated")
	assert.Same(t, teamSchema, team.Schema())
	assert.Equal(t, "http://api", team.BaseURL())
	name, _ := team.GetString("name")
	assert.Equal(t, "core", name)

	tags, ok := e.GetEntities("tags")
	require.True(t, ok)
	require.Len(t, tags, 2)
	assert.Same(t, tagSchema, tags[1].Schema())
	label, _ := tags[1].GetString("label")
	assert.Equal(t, "b", label)

	roles, _ := e.Get("roles")
	assert.Equal(t, []any{"admin"}, roles, "undeclared arrays are assigned raw")

	data, err := json.Marshal(e)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "core", decoded["team"].(map[string]any)["name"])
	assert.Len(t, decoded["tags"], 2)
	assert.NotContains(t, decoded, "mode")
	assert.NotContains(t, decoded, "loading")
}

func TestEntity_Setter(t *testing.T) {
	schema := &model.Schema{
		Setter: func(data map[string]any) map[string]any {
			if v, ok := data["fullName"]; ok {
				data["name"] = v
				delete(data, "fullName")
			}
			return data
		},
	}

	input := map[string]any{"fullName": "Lee"}
	e := model.NewEntity(schema, input)

	name, ok := e.GetString("name")
	assert.True(t, ok)
	assert.Equal(t, "Lee", name)
	_, has := e.Get("fullName")
	assert.False(t, has)
	assert.Contains(t, input, "fullName", "setter works on a copy")
}

func TestParseEntity(t *testing.T) {
	e, err := model.ParseEntity(userSchema(), []byte(`{"id": 7, "name": "kim", "created_at": "2024-03-01T10:00:00Z"}`))
	require.NoError(t, err)

	id, ok := e.GetInt("id")
	assert.True(t, ok)
	assert.Equal(t, 7, id)

	created, ok := e.GetTime(model.FieldCreatedAt)
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC), created)

	_, err = model.ParseEntity(userSchema(), []byte(`[1,2]`))
	assert.ErrorIs(t, err, model.ErrInvalidJSON)

	_, err = model.ParseEntity(userSchema(), []byte(`null`))
	assert.ErrorIs(t, err, model.ErrInvalidJSON)
}

func TestEntity_Validate(t *testing.T) {
	e := model.NewEntity(userSchema(), map[string]any{"password": "abc"})

	result, err := e.Validate(nil, nil)
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, []string{"name", "password"}, result.Fields())
	assert.Equal(t, "name is required", e.FirstError("name", 0))
	assert.Equal(t, "password is too weak", e.FirstError("password", 0))
	assert.Equal(t, result, e.Errors())

	e.Set(map[string]any{"name": "kim", "password": "abc1"})
	result, err = e.Validate(nil, nil)
	require.NoError(t, err)
	assert.Nil(t, result, "all rules passing yields no result")
	assert.Equal(t, "", e.FirstError("name", 0))

	_, err = e.Validate(validate.Rules{"name": {"nope": {"message": "x"}}}, nil)
	assert.ErrorIs(t, err, validate.ErrUnknownValidator)
}

func TestEntity_ValidateDoesNotExposeLiveState(t *testing.T) {
	registry := validate.NewRegistry()
	registry.MustRegister("mutate", func(value any, opts validate.Options) string {
		if m, ok := value.(map[string]any); ok {
			m["name"] = "mutated"
		}
		return ""
	})

	e := model.NewEntity(&model.Schema{Validators: registry}, map[string]any{
		"profile": map[string]any{"name": "kim"},
	})
	_, err := e.Validate(validate.Rules{"profile": {"mutate": {}}}, nil)
	require.NoError(t, err)

	profile, _ := e.GetMap("profile")
	assert.Equal(t, "kim", profile["name"])
}

func TestEntity_CRUD(t *testing.T) {
	srv := testutil.NewServer("secret")
	srv.Seed(map[string]any{"id": 1, "name": "kim", "team": map[string]any{"id": 9, "name": "core"}})
	ts := srv.Start(t)
	cl := newTestClient(ts.URL)
	ctx := context.Background()

	t.Run("read", func(t *testing.T) {
		e := model.NewEntity(userSchema(), map[string]any{"id": 1}, model.WithClient(cl))
		_, err := e.Read(ctx, nil)
		require.NoError(t, err)

		assert.Equal(t, "/users/1", srv.LastRequest().Path)
		assert.Equal(t, http.MethodGet, srv.LastRequest().Method)
		name, _ := e.GetString("name")
		assert.Equal(t, "kim", name)
		team, ok := e.GetEntity("team")
		require.True(t, ok)
		teamName, _ := team.GetString("name")
		assert.Equal(t, "core", teamName)
	})

	t.Run("create", func(t *testing.T) {
		e := model.NewEntity(userSchema(), map[string]any{"name": "lee"}, model.WithClient(cl))
		_, err := e.Create(ctx, &client.Options{Body: e})
		require.NoError(t, err)

		assert.Equal(t, http.MethodPost, srv.LastRequest().Method)
		assert.Equal(t, "/users", srv.LastRequest().Path)
		id, ok := e.GetInt("id")
		require.True(t, ok)
		assert.Equal(t, 2, id)
		_, stored := srv.User("2")
		assert.True(t, stored)
	})

	t.Run("update does not apply response", func(t *testing.T) {
		e := model.NewEntity(userSchema(), map[string]any{"id": 1, "name": "renamed"}, model.WithClient(cl))
		resp, err := e.Update(ctx, &client.Options{Body: map[string]any{"name": "renamed"}})
		require.NoError(t, err)

		assert.Equal(t, http.MethodPut, srv.LastRequest().Method)
		assert.Equal(t, "/users/1", srv.LastRequest().Path)
		assert.Equal(t, "2024-01-02T00:00:00Z", resp.Data.(map[string]any)["updated_at"])
		updated, _ := e.Get(model.FieldUpdatedAt)
		assert.Nil(t, updated)
	})

	t.Run("delete", func(t *testing.T) {
		e := model.NewEntity(userSchema(), map[string]any{"id": 2}, model.WithClient(cl))
		_, err := e.Delete(ctx, nil)
		require.NoError(t, err)

		assert.Equal(t, http.MethodDelete, srv.LastRequest().Method)
		assert.Equal(t, model.ModeDeleted, e.Mode())
		_, stored := srv.User("2")
		assert.False(t, stored)
	})

	t.Run("read failure", func(t *testing.T) {
		e := model.NewEntity(userSchema(), map[string]any{"id": 404}, model.WithClient(cl))
		_, err := e.Read(ctx, nil)
		require.Error(t, err)

		assert.Equal(t, http.StatusNotFound, client.StatusCode(err))
		assert.False(t, e.Loading())
		assert.Equal(t, model.ModeStatic, e.Mode())
	})

	t.Run("delete failure keeps mode", func(t *testing.T) {
		e := model.NewEntity(userSchema(), map[string]any{"id": 404}, model.WithClient(cl))
		_, err := e.Delete(ctx, nil)
		require.Error(t, err)
		assert.Equal(t, model.ModeStatic, e.Mode())
	})
}

func TestEntity_ResponseHandler(t *testing.T) {
	srv := testutil.NewServer("secret")
	srv.Seed(map[string]any{"id": 1, "name": "kim"})
	ts := srv.Start(t)

	schema := userSchema()
	schema.ResponseHandler = func(data any, _ *client.Options) (any, error) {
		m := data.(map[string]any)
		m["source"] = "schema"
		return m, nil
	}

	e := model.NewEntity(schema, map[string]any{"id": 1}, model.WithClient(newTestClient(ts.URL)))
	_, err := e.Read(context.Background(), nil)
	require.NoError(t, err)
	source, _ := e.GetString("source")
	assert.Equal(t, "schema", source)

	_, err = e.Read(context.Background(), &client.Options{
		ResponseHandler: func(data any, _ *client.Options) (any, error) {
			return map[string]any{"source": "call"}, nil
		},
	})
	require.NoError(t, err)
	source, _ = e.GetString("source")
	assert.Equal(t, "call", source)

	_, err = e.Read(context.Background(), &client.Options{
		ResponseHandler: func(any, *client.Options) (any, error) { return 42, nil },
	})
	assert.ErrorIs(t, err, model.ErrInvalidPayload)
}

func TestEntity_LoadingDuringRequest(t *testing.T) {
	var e *model.Entity
	var observed bool

	cl := client.New(
		client.WithChain(client.NewChain(client.Hooks{})),
		client.WithTransport(client.TransportFunc(func(context.Context, *client.Request) (*client.Response, error) {
			observed = e.Loading()
			return nil, errors.New("connection refused")
		})),
	)
	e = model.NewEntity(userSchema(), map[string]any{"id": 1}, model.WithClient(cl), model.WithBaseURL("http://api"))

	_, err := e.Read(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, observed, "loading is set while the request is in flight")
	assert.False(t, e.Loading(), "loading is reset after failure")
}

func TestEntity_RequestHandlerAndMultipart(t *testing.T) {
	srv := testutil.NewServer("secret")
	srv.Seed(map[string]any{"id": 1, "name": "kim"})
	ts := srv.Start(t)

	schema := userSchema()
	schema.RequestHandler = func(_ context.Context, target client.Target, _ *client.Options) (any, error) {
		return formdataFor(target.(*model.Entity)), nil
	}

	e := model.NewEntity(schema, map[string]any{"id": 1, "name": "multipart"}, model.WithClient(newTestClient(ts.URL)))
	_, err := e.Update(context.Background(), nil)
	require.NoError(t, err)

	last := srv.LastRequest()
	assert.Equal(t, http.MethodPost, last.Method)
	assert.Equal(t, "PUT", last.Form["_method"])
	assert.Equal(t, "multipart", last.Form["name"])

	stored, _ := srv.User("1")
	assert.Equal(t, "multipart", stored["name"])
}

func formdataFor(e *model.Entity) *formdata.Form {
	return formdata.ToMultipart(e.Snapshot(), "team")
}

func TestEntity_BearerHeadersReachServer(t *testing.T) {
	srv := testutil.NewServer("secret")
	ts := srv.Start(t)
	cl := newTestClient(ts.URL)

	e := model.NewEntity(&model.Schema{API: "private/me"}, nil, model.WithClient(cl))

	_, err := e.Request(context.Background(), nil, client.Defaults{})
	assert.Equal(t, http.StatusUnauthorized, client.StatusCode(err))

	token := testutil.SignToken(t, "secret", "user-42")
	_, err = e.Request(context.Background(), &client.Options{
		Headers: map[string]string{"Authorization": "Bearer " + token},
	}, client.Defaults{})
	require.NoError(t, err)
}
