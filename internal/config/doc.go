// Package config loads the statementcheck configuration.
//
// # Configuration Sources
//
// Configuration is layered, later sources overriding earlier ones:
//
//  1. Built-in defaults (Default)
//  2. A .env file in the working directory, if present
//  3. A YAML file: STMT_CONFIG_FILE, config.yaml or configs/config.yaml
//  4. Environment variables (highest priority)
//
// # Environment Variables
//
// All environment variables follow the pattern STMT_<SECTION>_<FIELD>:
//
//	STMT_SERVER_PORT=8080
//	STMT_LOGGING_LEVEL=debug
//	STMT_ANALYSIS_PERCENT_THRESHOLD=40
//	STMT_ANALYSIS_SYMBOL_FILTER=EURUSD,XAUUSD
//	STMT_CACHE_ENABLED=false
//
// # Analysis
//
// The analysis section carries the options applied when a caller sets none
// (AnalysisConfig.DefaultOptions) and the statement ingestion heuristics
// (AnalysisConfig.Thresholds).
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
package config
