package retrieve

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/XiaoConstantine/prodeval/internal/logger"
	"github.com/XiaoConstantine/prodeval/pkg/benchgen"
	"github.com/XiaoConstantine/prodeval/pkg/catalog"
	"github.com/XiaoConstantine/prodeval/pkg/eval"
)

// chatServer answers successive chat completions with the given contents,
// repeating the last one.
func chatServer(t *testing.T, contents ...string) (*httptest.Server, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		n := int(atomic.AddInt32(&calls, 1)) - 1
		if n >= len(contents) {
			n = len(contents) - 1
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"id":      "chatcmpl-test",
			"object":  "chat.completion",
			"created": 0,
			"model":   "test-model",
			"choices": []map[string]interface{}{{
				"index":         0,
				"message":       map[string]string{"role": "assistant", "content": contents[n]},
				"finish_reason": "stop",
			}},
		})
	}))
	return srv, &calls
}

func newTestTranslator(t *testing.T, url string) *Translator {
	return NewTranslator(TranslatorConfig{
		APIKey:  "test",
		BaseURL: url + "/v1",
		Model:   "test-model",
	}, logger.NewTestLogger(t))
}

func TestParseTranslation(t *testing.T) {
	tests := []struct {
		name    string
		output  string
		want    [][2]string
		wantErr bool
	}{
		{
			name:   "json list",
			output: `[["brand", ""], ["category", "fragranze donna"], ["capacity", "50 ml"], ["olfactory category", "floreale"], ["price", "< 30"]]`,
			want: [][2]string{
				{"brand", ""}, {"category", "fragranze donna"}, {"capacity", "50 ml"},
				{"olfactory category", "floreale"}, {"price", "< 30"},
			},
		},
		{
			name:   "single quotes with surrounding text",
			output: "Here you go:\n[['brand', 'Acme'], ['category', ''], ['capacity', ''], ['olfactory category', ''], ['price', '']]",
			want: [][2]string{
				{"brand", "Acme"}, {"category", ""}, {"capacity", ""},
				{"olfactory category", ""}, {"price", ""},
			},
		},
		{name: "no list", output: "I cannot help", wantErr: true},
		{name: "four fields", output: `[["brand", ""], ["category", ""], ["capacity", ""], ["price", ""]]`, wantErr: true},
		{name: "bad capacity", output: `[["brand", ""], ["category", ""], ["capacity", "50ml"], ["olfactory category", ""], ["price", ""]]`, wantErr: true},
		{name: "bad price", output: `[["brand", ""], ["category", ""], ["capacity", ""], ["olfactory category", ""], ["price", "30 euro"]]`, wantErr: true},
		{name: "non-string value", output: `[["brand", 3], ["category", ""], ["capacity", ""], ["olfactory category", ""], ["price", ""]]`, wantErr: true},
		{name: "not a pair", output: `[["brand"], ["category", ""], ["capacity", ""], ["olfactory category", ""], ["price", ""]]`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTranslation(tt.output)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidTranslation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCapitalizeAndQuerySpec(t *testing.T) {
	fields := Capitalize([][2]string{
		{"brand", "ACME parfums"},
		{"category", "fragranze  donna"},
		{"capacity", "50 ML"},
		{"olfactory category", "floreale fruttato"},
		{"price", "< 30"},
	})
	assert.Equal(t, [][2]string{
		{"brand", "Acme Parfums"},
		{"category", "Fragranze Donna"},
		{"capacity", "50 ml"},
		{"olfactory category", "Floreale Fruttato"},
		{"price", "< 30"},
	}, fields)

	assert.Equal(t, benchgen.QuerySpec{
		"brand":              "Acme Parfums",
		"category":           "Fragranze Donna",
		"capacity":           "50 ml",
		"olfactory_category": "Floreale Fruttato",
		"price":              "<30",
	}, ToQuerySpec(fields))

	assert.Empty(t, ToQuerySpec([][2]string{{"brand", ""}, {"price", ""}}))
}

func TestTranslatorRetriesInvalidOutput(t *testing.T) {
	srv, calls := chatServer(t,
		"not a list",
		`[["brand", ""], ["category", "fragranze donna"], ["capacity", ""], ["olfactory category", "floreale"], ["price", "< 30"]]`,
	)
	defer srv.Close()

	spec, err := newTestTranslator(t, srv.URL).Translate(context.Background(), "fragranze donna floreale minori di 30 euro")
	require.NoError(t, err)
	assert.Equal(t, benchgen.QuerySpec{
		"category":           "Fragranze Donna",
		"olfactory_category": "Floreale",
		"price":              "<30",
	}, spec)
	assert.Equal(t, int32(2), atomic.LoadInt32(calls))
}

func TestTranslatorGivesUp(t *testing.T) {
	srv, calls := chatServer(t, "still not a list")
	defer srv.Close()

	_, err := newTestTranslator(t, srv.URL).Translate(context.Background(), "acme")
	assert.ErrorIs(t, err, ErrInvalidTranslation)
	assert.Equal(t, int32(3), atomic.LoadInt32(calls))
}

func TestNLSearcher(t *testing.T) {
	chat, _ := chatServer(t,
		`[["brand", "acme"], ["category", ""], ["capacity", ""], ["olfactory category", ""], ["price", ""]]`,
	)
	defer chat.Close()

	var gotQuery string
	sparql := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("query")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"results": map[string]interface{}{"bindings": []map[string]map[string]string{
				{"product": {"type": "uri", "value": "https://shop.example/cedro/#richSnippet"}},
			}},
		})
	}))
	defer sparql.Close()

	nl := NewNLSearcher(
		newTestTranslator(t, chat.URL),
		NewStructuredSearcher(sparql.URL, NewPermalinkIndex(testTable(t)), nil),
	)
	assert.Equal(t, eval.MethodLLM, nl.Method())

	ids, err := nl.Retrieve(context.Background(), benchgen.QuerySpec{"brand": "Acme"})
	require.NoError(t, err)
	assert.Equal(t, []catalog.ItemID{"2"}, ids)
	assert.Contains(t, gotQuery, `schema:name "Acme"`)
}
