package tiger

import (
	"context"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/sells-group/tract-equity/internal/census"
	"github.com/sells-group/tract-equity/internal/fetcher"
)

// LoaderOptions configures where tract archives come from and are kept.
type LoaderOptions struct {
	BaseURL string // TIGER root (default DefaultBaseURL)
	Year    int    // TIGER/Line vintage (default DefaultYear)
	Dir     string // download directory (default "out/tiger")
}

// Loader supplies tract boundaries from TIGER/Line archives. Each state's
// archive is downloaded and parsed at most once per Loader.
type Loader struct {
	f    fetcher.Fetcher
	opts LoaderOptions

	mu     sync.Mutex
	states map[string]map[string]*geom.MultiPolygon
}

// NewLoader creates a Loader.
func NewLoader(f fetcher.Fetcher, opts LoaderOptions) *Loader {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Year == 0 {
		opts.Year = DefaultYear
	}
	if opts.Dir == "" {
		opts.Dir = filepath.Join("out", "tiger")
	}
	return &Loader{
		f:      f,
		opts:   opts,
		states: make(map[string]map[string]*geom.MultiPolygon),
	}
}

// Tracts returns the boundaries of every tract in scope's county.
func (l *Loader) Tracts(ctx context.Context, scope census.Scope) (map[string]*geom.MultiPolygon, error) {
	if err := scope.Validate(); err != nil {
		return nil, err
	}

	all, err := l.state(ctx, scope.StateFIPS)
	if err != nil {
		return nil, err
	}

	prefix := scope.GEOID()
	out := make(map[string]*geom.MultiPolygon)
	for geoid, g := range all {
		if strings.HasPrefix(geoid, prefix) {
			out[geoid] = g
		}
	}

	zap.L().Debug("tract boundaries",
		zap.String("component", "tiger.loader"),
		zap.String("county", prefix),
		zap.Int("tracts", len(out)),
	)
	return out, nil
}

func (l *Loader) state(ctx context.Context, stateFIPS string) (map[string]*geom.MultiPolygon, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if cached, ok := l.states[stateFIPS]; ok {
		return cached, nil
	}

	url := TractURL(l.opts.BaseURL, l.opts.Year, stateFIPS)
	dir := filepath.Join(l.opts.Dir, strconv.Itoa(l.opts.Year))
	shpPath, err := FetchShapefile(ctx, l.f, url, dir)
	if err != nil {
		return nil, eris.Wrapf(err, "tiger: state %s", stateFIPS)
	}

	tracts, err := ReadTracts(shpPath, "")
	if err != nil {
		return nil, err
	}

	l.states[stateFIPS] = tracts
	return tracts, nil
}
