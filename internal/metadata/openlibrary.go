package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/osamaafana/BookScaner/internal/fingerprint"
	"github.com/osamaafana/BookScaner/internal/models"
)

const (
	openLibraryBaseURL = "https://openlibrary.org"

	// Cover templates: ISBN-keyed preferred, internal cover id as a
	// fallback for records without a usable ISBN.
	olCoverByISBN = "https://covers.openlibrary.org/b/isbn/%s-L.jpg"
	olCoverByID   = "https://covers.openlibrary.org/b/id/%d-L.jpg"
)

// OpenLibrary is the primary metadata catalog.
type OpenLibrary struct {
	baseURL    string
	httpClient *http.Client
}

func NewOpenLibrary() *OpenLibrary {
	return &OpenLibrary{
		baseURL: openLibraryBaseURL,
		httpClient: &http.Client{
			Timeout: 20 * time.Second,
		},
	}
}

func (o *OpenLibrary) Name() string { return "openlibrary" }

// ByISBN looks up a book by exact ISBN. A missing record is (nil, nil).
func (o *OpenLibrary) ByISBN(ctx context.Context, isbn string) (*models.CanonicalBook, error) {
	isbn = fingerprint.NormalizeISBN(isbn)
	if isbn == "" {
		return nil, nil
	}

	bibkey := "ISBN:" + isbn
	q := url.Values{
		"bibkeys": {bibkey},
		"format":  {"json"},
		"jscmd":   {"data"},
	}
	var data map[string]struct {
		Title   string `json:"title"`
		Authors []struct {
			Name string `json:"name"`
		} `json:"authors"`
		Publishers []struct {
			Name string `json:"name"`
		} `json:"publishers"`
		PublishDate string `json:"publish_date"`
	}
	if err := o.getJSON(ctx, "/api/books", q, &data); err != nil {
		return nil, err
	}

	item, ok := data[bibkey]
	if !ok {
		return nil, nil
	}

	var author, publisher string
	if len(item.Authors) > 0 {
		author = item.Authors[0].Name
	}
	if len(item.Publishers) > 0 {
		publisher = item.Publishers[0].Name
	}

	return &models.CanonicalBook{
		Title:       item.Title,
		Author:      author,
		ISBN:        isbn,
		CoverURL:    fmt.Sprintf(olCoverByISBN, isbn),
		Publisher:   publisher,
		Year:        parseYear(item.PublishDate),
		Fingerprint: fingerprint.Make(item.Title, author, isbn),
	}, nil
}

type olDoc struct {
	Title            string   `json:"title"`
	AuthorName       []string `json:"author_name"`
	ISBN             []string `json:"isbn"`
	EditionCount     int      `json:"edition_count"`
	FirstPublishYear int      `json:"first_publish_year"`
	CoverID          int      `json:"cover_i"`
	Subject          []string `json:"subject"`
}

// Search runs a fuzzy title/author search and returns the best-ranked
// candidate, or (nil, nil) when nothing matches.
func (o *OpenLibrary) Search(ctx context.Context, title, author string) (*models.CanonicalBook, error) {
	if title == "" && author == "" {
		return nil, nil
	}

	q := url.Values{
		"title":  {title},
		"author": {author},
		"limit":  {"5"},
	}
	var data struct {
		Docs []olDoc `json:"docs"`
	}
	if err := o.getJSON(ctx, "/search.json", q, &data); err != nil {
		return nil, err
	}
	if len(data.Docs) == 0 {
		return nil, nil
	}

	best := rankDocs(data.Docs, title, author)

	isbn := pickISBN(best.ISBN)
	var cover string
	switch {
	case isbn != "":
		cover = fmt.Sprintf(olCoverByISBN, isbn)
	case best.CoverID > 0:
		cover = fmt.Sprintf(olCoverByID, best.CoverID)
	}

	bookTitle := best.Title
	if bookTitle == "" {
		bookTitle = title
	}
	var bookAuthor string
	if len(best.AuthorName) > 0 {
		bookAuthor = best.AuthorName[0]
	}
	fpAuthor := bookAuthor
	if fpAuthor == "" {
		fpAuthor = author
	}

	return &models.CanonicalBook{
		Title:       bookTitle,
		Author:      bookAuthor,
		ISBN:        isbn,
		CoverURL:    cover,
		Year:        best.FirstPublishYear,
		Subjects:    best.Subject,
		Fingerprint: fingerprint.Make(bookTitle, fpAuthor, isbn),
	}, nil
}

// rankDocs scores every candidate by (title similarity, author
// similarity, edition count) with title dominating, and returns the
// best. The sort is stable so ties keep the catalog's own order.
func rankDocs(docs []olDoc, title, author string) olDoc {
	type scored struct {
		doc                   olDoc
		titleScore, authScore float64
		editionScore          float64
	}
	ranked := make([]scored, len(docs))
	for i, d := range docs {
		s := scored{doc: d, titleScore: Similarity(title, d.Title) * 10}
		if author != "" {
			s.authScore = Similarity(author, joinAuthors(d.AuthorName)) * 5
		}
		s.editionScore = min(float64(d.EditionCount)/100, 1)
		ranked[i] = s
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.titleScore != b.titleScore {
			return a.titleScore > b.titleScore
		}
		if a.authScore != b.authScore {
			return a.authScore > b.authScore
		}
		return a.editionScore > b.editionScore
	})
	return ranked[0].doc
}

func joinAuthors(names []string) string {
	return strings.Join(names, " ")
}

// pickISBN prefers a 13-digit ISBN, falling back to the first entry.
func pickISBN(isbns []string) string {
	for _, raw := range isbns {
		if norm := fingerprint.NormalizeISBN(raw); len(norm) == 13 {
			return norm
		}
	}
	if len(isbns) > 0 {
		return fingerprint.NormalizeISBN(isbns[0])
	}
	return ""
}

func (o *OpenLibrary) getJSON(ctx context.Context, path string, q url.Values, dest any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	resp, err := o.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("calling openlibrary: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("openlibrary returned %d for %s", resp.StatusCode, path)
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decoding openlibrary response: %w", err)
	}
	return nil
}

var yearRe = regexp.MustCompile(`(19|20)\d{2}`)

// parseYear pulls a 4-digit year out of free-form publish dates like
// "May 12, 1999".
func parseYear(s string) int {
	m := yearRe.FindString(s)
	if m == "" {
		return 0
	}
	y, _ := strconv.Atoi(m)
	return y
}
