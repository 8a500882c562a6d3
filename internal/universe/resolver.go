package universe

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/wonny/valuescan/internal/contracts"
	"github.com/wonny/valuescan/internal/metrics"
	"github.com/wonny/valuescan/pkg/logger"
	"github.com/wonny/valuescan/pkg/redis"
)

// Universe names
const (
	SP500     = "sp500"
	NASDAQ100 = "nasdaq100"
	HangSeng  = "hangseng"
	Nikkei225 = "nikkei225"
	All       = "all"
)

// Source tells where a resolved list came from
type Source string

const (
	SourcePrimary  Source = "primary"
	SourceFallback Source = "fallback"
	SourceCache    Source = "cache"
	SourceNone     Source = "none"
)

// fallbackTTL keeps a fallback list briefly so a broken page is not re-fetched per request
const fallbackTTL = 10 * time.Minute

// sharedResolveTimeout bounds a resolution shared by concurrent callers
const sharedResolveTimeout = 2 * time.Minute

// Resolution reports how a universe was resolved. Err is the primary failure, if any.
type Resolution struct {
	Name   string `json:"name"`
	Source Source `json:"source"`
	Size   int    `json:"size"`
	Err    string `json:"error,omitempty"`
}

// Definition describes one built-in universe
type Definition struct {
	Name       string
	URL        string
	Strategies []ExtractStrategy
	Fallback   []contracts.SecurityID
}

// DefaultDefinitions returns the four built-in universes
func DefaultDefinitions() []Definition {
	return []Definition{
		{
			Name: SP500,
			URL:  "https://www.slickcharts.com/sp500",
			Strategies: []ExtractStrategy{
				TableAnchorColumn{TableSelector: "table.table", Column: 2},
				HeaderColumn{Headers: []string{"Symbol"}},
			},
			Fallback: sp500Fallback,
		},
		{
			Name: NASDAQ100,
			URL:  "https://www.slickcharts.com/nasdaq100",
			Strategies: []ExtractStrategy{
				TableAnchorColumn{TableSelector: "table.table", Column: 2},
				HeaderColumn{Headers: []string{"Symbol"}},
			},
			Fallback: nasdaq100Fallback,
		},
		{
			Name: HangSeng,
			URL:  "https://en.wikipedia.org/wiki/Hang_Seng_Index",
			Strategies: []ExtractStrategy{
				HeaderColumn{Headers: []string{"Ticker", "Code", "SEHK"}, Suffix: ".HK", Pad: 4, Numeric: true},
			},
			Fallback: hangSengFallback,
		},
		{
			Name: Nikkei225,
			URL:  "https://indexes.nikkei.co.jp/en/nkave/index/component",
			Strategies: []ExtractStrategy{
				AnchorClass{Selector: "a.ticker", Suffix: ".T"},
				HeaderColumn{Headers: []string{"Code"}, Suffix: ".T", Numeric: true},
			},
			Fallback: nikkei225Fallback,
		},
	}
}

type cachedList struct {
	IDs    []contracts.SecurityID `json:"ids"`
	Source Source                 `json:"source"`
}

type localEntry struct {
	list      cachedList
	expiresAt time.Time
}

// Resolver turns a universe name into a list of ids.
// Primary = live listings page; fallback = static snapshot. Resolve never fails.
// ⭐ SSOT: 유니버스 결정은 여기서만
type Resolver struct {
	fetcher contracts.ListingsFetcher
	defs    map[string]Definition
	order   []string
	cache   *redis.Cache
	ttl     time.Duration
	metrics *metrics.Registry
	logger  *logger.Logger
	now     func() time.Time

	mu    sync.Mutex
	local map[string]localEntry
	group singleflight.Group
}

// NewResolver creates a Resolver over the built-in definitions.
// cache and m may be nil; without Redis an in-process TTL map is used.
func NewResolver(fetcher contracts.ListingsFetcher, cache *redis.Cache, ttl time.Duration, m *metrics.Registry, log *logger.Logger) *Resolver {
	return NewResolverWithDefinitions(fetcher, DefaultDefinitions(), cache, ttl, m, log)
}

// NewResolverWithDefinitions creates a Resolver over custom definitions (tests, extra indices)
func NewResolverWithDefinitions(fetcher contracts.ListingsFetcher, defs []Definition, cache *redis.Cache, ttl time.Duration, m *metrics.Registry, log *logger.Logger) *Resolver {
	if ttl <= 0 {
		ttl = redis.TTLDaily
	}
	r := &Resolver{
		fetcher: fetcher,
		defs:    make(map[string]Definition, len(defs)),
		cache:   cache,
		ttl:     ttl,
		metrics: m,
		logger:  log.WithModule("universe"),
		now:     time.Now,
		local:   make(map[string]localEntry),
	}
	for _, d := range defs {
		key := strings.ToLower(d.Name)
		r.defs[key] = d
		r.order = append(r.order, key)
	}
	return r
}

// Names lists resolvable universe names, "all" last
func (r *Resolver) Names() []string {
	names := append([]string(nil), r.order...)
	return append(names, All)
}

// Lookup returns a built-in definition or ErrUnknownUniverse
func (r *Resolver) Lookup(name string) (Definition, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == All {
		return Definition{Name: All}, nil
	}
	d, ok := r.defs[key]
	if !ok {
		return Definition{}, fmt.Errorf("%w: %q", contracts.ErrUnknownUniverse, name)
	}
	return d, nil
}

// Resolve returns the deduplicated ids of a universe. It never fails:
// unknown names resolve to an empty list with SourceNone.
func (r *Resolver) Resolve(ctx context.Context, name string) ([]contracts.SecurityID, Resolution) {
	key := strings.ToLower(strings.TrimSpace(name))

	if key == All {
		return r.resolveAll(ctx)
	}

	def, err := r.Lookup(key)
	if err != nil {
		r.logger.WithField("universe", name).Warn("Unknown universe requested")
		return nil, Resolution{Name: name, Source: SourceNone, Err: err.Error()}
	}

	// 동일 유니버스 동시 요청은 한 번만 조회
	// 첫 호출자가 취소해도 대기 중인 호출자에게 영향 없음
	ch := r.group.DoChan(key, func() (interface{}, error) {
		shared, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedResolveTimeout)
		defer cancel()
		ids, res := r.resolveOne(shared, def)
		return resolved{ids: ids, res: res}, nil
	})

	var out resolved
	select {
	case v := <-ch:
		out = v.Val.(resolved)
	case <-ctx.Done():
		// only this caller gets the uncached fallback
		ids := Dedupe(def.Fallback)
		return ids, Resolution{Name: key, Source: SourceFallback, Size: len(ids), Err: ctx.Err().Error()}
	}

	r.metrics.ObserveUniverse(key, string(out.res.Source), len(out.ids))
	return append([]contracts.SecurityID(nil), out.ids...), out.res
}

type resolved struct {
	ids []contracts.SecurityID
	res Resolution
}

func (r *Resolver) resolveOne(ctx context.Context, def Definition) ([]contracts.SecurityID, Resolution) {
	key := strings.ToLower(def.Name)
	log := r.logger.WithField("universe", key)

	// 1. Cache
	if list, ok := r.cached(ctx, key); ok {
		log.WithField("count", len(list.IDs)).Debug("Universe served from cache")
		return list.IDs, Resolution{Name: key, Source: SourceCache, Size: len(list.IDs)}
	}

	// 2. Primary
	ids, primaryErr := r.fetchPrimary(ctx, def)
	if primaryErr == nil {
		r.store(ctx, key, cachedList{IDs: ids, Source: SourcePrimary}, r.ttl)
		log.WithField("count", len(ids)).Info("Universe resolved from listings page")
		return ids, Resolution{Name: key, Source: SourcePrimary, Size: len(ids)}
	}

	// 3. Static fallback
	ids = Dedupe(def.Fallback)
	log.WithError(primaryErr).WithField("count", len(ids)).Warn("Listings fetch failed, using fallback")
	r.store(ctx, key, cachedList{IDs: ids, Source: SourceFallback}, fallbackTTL)

	return ids, Resolution{Name: key, Source: SourceFallback, Size: len(ids), Err: primaryErr.Error()}
}

func (r *Resolver) fetchPrimary(ctx context.Context, def Definition) ([]contracts.SecurityID, error) {
	if r.fetcher == nil || def.URL == "" {
		return nil, errors.New("no listings source configured")
	}

	body, err := r.fetcher.FetchPage(ctx, def.URL)
	if err != nil {
		return nil, err
	}

	doc, err := ParseDocument(body)
	if err != nil {
		return nil, err
	}

	var errs []error
	for _, s := range def.Strategies {
		ids, err := s.Extract(doc)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
			continue
		}
		if ids = Dedupe(ids); len(ids) > 0 {
			return ids, nil
		}
		errs = append(errs, fmt.Errorf("%s: no constituents", s.Name()))
	}

	return nil, fmt.Errorf("extract constituents: %w", errors.Join(errs...))
}

func (r *Resolver) resolveAll(ctx context.Context) ([]contracts.SecurityID, Resolution) {
	lists := make([][]contracts.SecurityID, 0, len(r.order))
	res := Resolution{Name: All, Source: SourceCache}
	var errs []string

	for _, key := range r.order {
		ids, one := r.Resolve(ctx, key)
		lists = append(lists, ids)

		switch {
		case one.Source == SourceFallback:
			res.Source = SourceFallback
		case one.Source == SourcePrimary && res.Source == SourceCache:
			res.Source = SourcePrimary
		}
		if one.Err != "" {
			errs = append(errs, key+": "+one.Err)
		}
	}

	ids := Union(lists...)
	res.Size = len(ids)
	res.Err = strings.Join(errs, "; ")
	return ids, res
}

func (r *Resolver) cached(ctx context.Context, key string) (cachedList, bool) {
	r.mu.Lock()
	entry, ok := r.local[key]
	r.mu.Unlock()
	if ok && r.now().Before(entry.expiresAt) {
		return entry.list, true
	}

	if r.cache.Enabled() {
		var list cachedList
		found, err := r.cache.Get(ctx, redis.UniverseKey(key), &list)
		if err != nil {
			r.logger.WithError(err).WithField("universe", key).Warn("Universe cache read failed")
		}
		if found && len(list.IDs) > 0 {
			return list, true
		}
	}

	return cachedList{}, false
}

func (r *Resolver) store(ctx context.Context, key string, list cachedList, ttl time.Duration) {
	r.mu.Lock()
	r.local[key] = localEntry{list: list, expiresAt: r.now().Add(ttl)}
	r.mu.Unlock()

	if err := r.cache.Set(ctx, redis.UniverseKey(key), list, ttl); err != nil {
		r.logger.WithError(err).WithField("universe", key).Warn("Universe cache write failed")
	}
}

// Invalidate drops cached lists (all when no names are given)
func (r *Resolver) Invalidate(ctx context.Context, names ...string) {
	if len(names) == 0 {
		names = r.order
	}
	r.mu.Lock()
	for _, n := range names {
		delete(r.local, strings.ToLower(n))
	}
	r.mu.Unlock()

	for _, n := range names {
		if err := r.cache.Delete(ctx, redis.UniverseKey(n)); err != nil {
			r.logger.WithError(err).WithField("universe", n).Warn("Universe cache delete failed")
		}
	}
}

// Dedupe removes duplicates and empties, keeping first-appearance order
func Dedupe(ids []contracts.SecurityID) []contracts.SecurityID {
	seen := make(map[contracts.SecurityID]struct{}, len(ids))
	out := make([]contracts.SecurityID, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// Union concatenates lists and dedupes
func Union(lists ...[]contracts.SecurityID) []contracts.SecurityID {
	var all []contracts.SecurityID
	for _, l := range lists {
		all = append(all, l...)
	}
	return Dedupe(all)
}

// Sorted returns a sorted copy (stable output for CLI listings)
func Sorted(ids []contracts.SecurityID) []contracts.SecurityID {
	out := append([]contracts.SecurityID(nil), ids...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
