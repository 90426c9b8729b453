// Package files finds statement files on disk and writes export files.
//
// Discovery: lists statement files (.csv, .txt, .tsv, .xlsx, .xlsm) in a
// directory and expands command line arguments that mix files and directories.
//
// Manager: writes output files below a base directory without clobbering
// existing ones.
//
// Example usage:
//
//	discovery := files.NewDiscovery("")
//	paths, err := discovery.Expand([]string{"statements/", "extra.csv"})
//
//	manager := files.NewManager("exports", logger)
//	written, err := manager.WriteFile(manager.UniquePath("51234567_daily.csv"), data)
package files
