package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const aboutPage = `<html><head><title>About Acme Robotics</title>
<meta name="description" content="Acme Robotics builds autonomous forklifts."></head>
<body><nav>Home | About</nav>
<main><h1>Our story</h1><p>Founded in 2011,   Acme serves 400 warehouses.</p></main>
<footer>Copyright</footer></body></html>`

func TestURL_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(aboutPage))
	}))
	defer server.Close()

	result, err := URL(context.Background(), server.URL, nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, result.StatusCode)
	assert.Equal(t, "About Acme Robotics", result.Title)
	assert.Equal(t, "Acme Robotics builds autonomous forklifts.", result.Description)
	assert.Contains(t, result.Text, "Founded in 2011, Acme serves 400 warehouses.")
	assert.NotContains(t, result.Text, "Copyright")
}

func TestURL_InvalidURL(t *testing.T) {
	for _, raw := range []string{"not-a-valid-url", "ftp://acme.com/file"} {
		_, err := URL(context.Background(), raw, nil)
		require.Error(t, err)
		var fetchErr *Error
		assert.ErrorAs(t, err, &fetchErr)
		assert.Contains(t, err.Error(), "invalid URL")
	}
}

func TestURL_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	result, err := URL(context.Background(), server.URL, nil)
	require.Error(t, err)
	require.NotNil(t, result)
	assert.Equal(t, http.StatusNotFound, result.StatusCode)
	assert.Contains(t, err.Error(), "404")
}

func TestURL_RejectsNonHTML(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF"))
	}))
	defer server.Close()

	_, err := URL(context.Background(), server.URL, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported content type")
}

func TestExtractMainText(t *testing.T) {
	tests := []struct {
		name     string
		html     string
		contains []string
		excludes []string
	}{
		{
			name:     "main element",
			html:     `<body><nav>Navigation</nav><main><h1>Main Content</h1></main><footer>Footer</footer></body>`,
			contains: []string{"Main Content"},
			excludes: []string{"Navigation", "Footer"},
		},
		{
			name:     "article element",
			html:     `<body><article><p>Article body.</p></article></body>`,
			contains: []string{"Article body."},
		},
		{
			name:     "fallback to body",
			html:     `<body><div>Some content here.</div><script>var x = 1;</script></body>`,
			contains: []string{"Some content here."},
			excludes: []string{"var x"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, err := ExtractMainText(tt.html, CompanyPageSelectors())
			require.NoError(t, err)
			for _, want := range tt.contains {
				assert.Contains(t, text, want)
			}
			for _, unwanted := range tt.excludes {
				assert.NotContains(t, text, unwanted)
			}
		})
	}
}

func TestExtractMainText_NoiseSelectors(t *testing.T) {
	text, err := ExtractMainText(`<main><div class="promo">Buy now</div><p>Facts</p></main>`, CompanyPageSelectors(), ".promo")
	require.NoError(t, err)
	assert.Equal(t, "Facts", text)
}

func TestShouldUseBrowser(t *testing.T) {
	assert.True(t, ShouldUseBrowser("   tiny   "))
	long := make([]byte, MinContentLength+1)
	for i := range long {
		long[i] = 'a'
	}
	assert.False(t, ShouldUseBrowser(string(long)))
}
