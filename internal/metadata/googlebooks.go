package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/osamaafana/BookScaner/internal/fingerprint"
	"github.com/osamaafana/BookScaner/internal/models"
)

const googleBooksBaseURL = "https://www.googleapis.com/books/v1"

// GoogleBooks is the fallback metadata catalog. The API key is optional
// for low request volumes.
type GoogleBooks struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

func NewGoogleBooks(apiKey string) *GoogleBooks {
	return &GoogleBooks{
		apiKey:  apiKey,
		baseURL: googleBooksBaseURL,
		httpClient: &http.Client{
			Timeout: 20 * time.Second,
		},
	}
}

func (g *GoogleBooks) Name() string { return "googlebooks" }

type gbVolume struct {
	VolumeInfo struct {
		Title               string   `json:"title"`
		Authors             []string `json:"authors"`
		Publisher           string   `json:"publisher"`
		PublishedDate       string   `json:"publishedDate"`
		IndustryIdentifiers []struct {
			Type       string `json:"type"`
			Identifier string `json:"identifier"`
		} `json:"industryIdentifiers"`
		ImageLinks struct {
			Thumbnail string `json:"thumbnail"`
		} `json:"imageLinks"`
	} `json:"volumeInfo"`
}

func (g *GoogleBooks) ByISBN(ctx context.Context, isbn string) (*models.CanonicalBook, error) {
	item, err := g.search(ctx, "isbn:"+fingerprint.NormalizeISBN(isbn))
	if err != nil {
		return nil, err
	}
	return g.toCanonical(item, "", ""), nil
}

func (g *GoogleBooks) Search(ctx context.Context, title, author string) (*models.CanonicalBook, error) {
	q := ""
	if title != "" {
		q = fmt.Sprintf("intitle:%q", title)
	}
	if author != "" {
		if q != "" {
			q += " "
		}
		q += fmt.Sprintf("inauthor:%q", author)
	}
	if q == "" {
		return nil, nil
	}
	item, err := g.search(ctx, q)
	if err != nil {
		return nil, err
	}
	return g.toCanonical(item, title, author), nil
}

func (g *GoogleBooks) search(ctx context.Context, q string) (*gbVolume, error) {
	params := url.Values{
		"q":          {q},
		"maxResults": {"5"},
	}
	if g.apiKey != "" {
		params.Set("key", g.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/volumes?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling google books: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("google books returned %d", resp.StatusCode)
	}

	var data struct {
		Items []gbVolume `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("decoding google books response: %w", err)
	}
	if len(data.Items) == 0 {
		return nil, nil
	}
	return &data.Items[0], nil
}

func (g *GoogleBooks) toCanonical(item *gbVolume, fallbackTitle, fallbackAuthor string) *models.CanonicalBook {
	if item == nil {
		return nil
	}
	vi := item.VolumeInfo

	title := vi.Title
	if title == "" {
		title = fallbackTitle
	}
	author := fallbackAuthor
	if len(vi.Authors) > 0 {
		author = vi.Authors[0]
	}

	// Prefer an ISBN-13 identifier, keep an ISBN-10 otherwise.
	var isbn string
	for _, ident := range vi.IndustryIdentifiers {
		if ident.Type != "ISBN_13" && ident.Type != "ISBN_10" {
			continue
		}
		isbn = fingerprint.NormalizeISBN(ident.Identifier)
		if ident.Type == "ISBN_13" {
			break
		}
	}

	var year int
	if len(vi.PublishedDate) >= 4 {
		year, _ = strconv.Atoi(vi.PublishedDate[:4])
	}

	return &models.CanonicalBook{
		Title:       title,
		Author:      author,
		ISBN:        isbn,
		CoverURL:    vi.ImageLinks.Thumbnail,
		Publisher:   vi.Publisher,
		Year:        year,
		Fingerprint: fingerprint.Make(title, author, isbn),
	}
}
