package metricpage

import "go-fed-dashboard/internal/helpers"

const (
	colorGreen = "#81c784"
	colorBlue  = "#90caf9"
	colorGrey  = "#bdbdbd"
)

func title(s string) helpers.ValueOrFunc[string, string] {
	return helpers.Value[string, string](s)
}

func projectsTitle() helpers.ValueOrFunc[string, string] {
	return helpers.Func(func(serverName string) string {
		if serverName == "" {
			return "Projects"
		}
		return "Projects on " + serverName
	})
}

func commonGraphs() []Template {
	return []Template{
		{Key: "transfer-rate", Title: title("Transfer Rate"), Kind: KindTransferRateGraph, Metric: "xrootd_server_bytes", Function: "rate", Range: "5m", Section: SectionGraphs},
		{Key: "cpu", Title: title("CPU Usage"), Kind: KindCPUGraph, Metric: "process_cpu_seconds_total", Function: "rate", Range: "5m", Section: SectionGraphs},
		{Key: "memory", Title: title("Memory Usage"), Kind: KindMemoryGraph, Metric: "process_resident_memory_bytes", Section: SectionGraphs},
	}
}

func commonSummary() []Template {
	return []Template{
		{Key: "pelican-threads", Title: title("Pelican Threads"), Kind: KindBigMetric, Metric: "go_threads", FinalType: FinalLast, Color: colorGreen, Section: SectionSummary},
		{Key: "xrootd-running-threads", Title: title("XRootD Running Threads"), Kind: KindBigMetric, Metric: "xrootd_sched_thread_count", Labels: map[string]string{"state": "running"}, FinalType: FinalLast, Color: colorBlue, Section: SectionSummary},
		{Key: "xrootd-idle-threads", Title: title("XRootD Idle Threads"), Kind: KindBigMetric, Metric: "xrootd_sched_thread_count", Labels: map[string]string{"state": "idle"}, FinalType: FinalLast, Color: colorGrey, Section: SectionSummary},
		{Key: "bytes-read", Title: title("Bytes `read`"), Kind: KindBigBytesMetric, Metric: "xrootd_transfer_bytes", Labels: map[string]string{"type": "read"}, FinalType: FinalSum, Color: colorGreen, Section: SectionSummary},
		{Key: "bytes-readv", Title: title("Bytes `readv`"), Kind: KindBigBytesMetric, Metric: "xrootd_transfer_bytes", Labels: map[string]string{"type": "readv"}, FinalType: FinalSum, Color: colorGreen, Section: SectionSummary},
		{Key: "bytes-write", Title: title("Bytes `write`"), Kind: KindBigBytesMetric, Metric: "xrootd_transfer_bytes", Labels: map[string]string{"type": "write"}, FinalType: FinalSum, Color: colorGreen, Section: SectionSummary},
		{Key: "go-routines", Title: title("Go Routines"), Kind: KindBigMetric, Metric: "go_goroutines", FinalType: FinalLast, Color: colorGreen, Section: SectionSummary},
		{Key: "xrootd-connections", Title: title("XRootD Server Connections"), Kind: KindBigMetric, Metric: "xrootd_server_connection_count", FinalType: FinalLast, Color: colorGreen, Section: SectionSummary},
	}
}

// OriginDefinition is the origin server metric page.
func OriginDefinition() Definition {
	templates := []Template{
		{Key: "project-table", Title: projectsTitle(), Kind: KindProjectTable, Metric: "xrootd_transfer_bytes", Function: "increase", Range: "24h", Section: SectionSidebar},
		{Key: "rx", Title: title("Bytes Received"), Kind: KindBigBytesMetric, Metric: "xrootd_server_bytes", Labels: map[string]string{"direction": "rx"}, Color: colorGreen, Section: SectionSidebar},
		{Key: "tx", Title: title("Bytes Transferred"), Kind: KindBigBytesMetric, Metric: "xrootd_server_bytes", Labels: map[string]string{"direction": "tx"}, Color: colorGreen, Section: SectionSidebar},
		{Key: "storage-graph", Title: title("Storage"), Kind: KindStorageGraph, Metric: "xrootd_storage_volume_bytes", Section: SectionSidebar, Global: true},
	}
	templates = append(templates, commonGraphs()...)
	templates = append(templates, commonSummary()...)
	return Definition{Name: "origin", Templates: templates}
}

// CacheDefinition is the cache server metric page.
func CacheDefinition() Definition {
	templates := []Template{
		{Key: "rx", Title: title("Bytes Received"), Kind: KindBigBytesMetric, Metric: "xrootd_server_bytes", Labels: map[string]string{"direction": "rx"}, Color: colorGreen, Section: SectionSidebar},
		{Key: "tx", Title: title("Bytes Transferred"), Kind: KindBigBytesMetric, Metric: "xrootd_server_bytes", Labels: map[string]string{"direction": "tx"}, Color: colorGreen, Section: SectionSidebar},
		{Key: "storage-graph", Title: title("Storage"), Kind: KindStorageGraph, Metric: "xrootd_storage_volume_bytes", Section: SectionSidebar, Global: true},
	}
	templates = append(templates, commonGraphs()...)
	templates = append(templates, commonSummary()...)
	return Definition{Name: "cache", Templates: templates}
}
