package store

// AnalyticsStore composes the other repositories' aggregate queries into
// one summary. It holds no SQL of its own beyond what's already exposed by
// PackageStore/FileStore/MetadataCacheStore, to avoid duplicating query
// logic.
type AnalyticsStore struct {
	Packages      *PackageStore
	Versions      *VersionStore
	Files         *FileStore
	MetadataCache *MetadataCacheStore
	CacheStats    *CacheStatsStore
}

func NewAnalyticsStore(pkgs *PackageStore, versions *VersionStore, files *FileStore, metaCache *MetadataCacheStore, stats *CacheStatsStore) *AnalyticsStore {
	return &AnalyticsStore{Packages: pkgs, Versions: versions, Files: files, MetadataCache: metaCache, CacheStats: stats}
}

type Summary struct {
	TotalPackages     int64            `json:"total_packages"`
	TotalSizeBytes    int64            `json:"total_size_bytes"`
	HitCount          int64            `json:"hit_count"`
	MissCount         int64            `json:"miss_count"`
	HitRate           float64          `json:"hit_rate"`
	MetadataCacheSize int64            `json:"metadata_cache_entries"`
	TopPackages       []PopularPackage `json:"top_packages"`
}

func (a *AnalyticsStore) Summary(topN int) (*Summary, error) {
	totalPackages, err := a.Packages.Count()
	if err != nil {
		return nil, err
	}
	totalSize, err := a.Files.TotalSizeBytes()
	if err != nil {
		return nil, err
	}
	stats, err := a.CacheStats.Get()
	if err != nil {
		return nil, err
	}
	metaCount, err := a.MetadataCache.Count()
	if err != nil {
		return nil, err
	}
	top, err := a.Files.TopByAccessCount(topN)
	if err != nil {
		return nil, err
	}

	var hitRate float64
	if total := stats.HitCount + stats.MissCount; total > 0 {
		hitRate = float64(stats.HitCount) / float64(total)
	}

	return &Summary{
		TotalPackages:     totalPackages,
		TotalSizeBytes:    totalSize,
		HitCount:          stats.HitCount,
		MissCount:         stats.MissCount,
		HitRate:           hitRate,
		MetadataCacheSize: metaCount,
		TopPackages:       top,
	}, nil
}
