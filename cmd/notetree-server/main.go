// Command notetree-server is the main server process that answers all client
// requests and sequences new commitments into the tree.
package main

import (
	"flag"
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Bren2010/notetree/db"
	"github.com/Bren2010/notetree/notify"
	"github.com/Bren2010/notetree/tree/accumulator"
)

var (
	configFile = flag.String("config", "", "Location of config file.")
)

func openStore(config *DatabaseConfig) (db.AccumulatorStore, error) {
	if config.Engine == "badger" {
		return db.NewBadgerAccumulatorStore(config.File)
	}
	return db.NewLDBAccumulatorStore(config.File)
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile | log.LUTC)
	flag.Parse()

	// Load config from disk.
	if *configFile == "" {
		log.Fatalf("No config file provided, see --help.")
	}
	config, err := ReadConfig(*configFile)
	if err != nil {
		log.Fatalf("Failed to load config file: %v", err)
	}

	// Set up the observers that are told about every change to the tree.
	observers := notify.Multi{notify.Logger{}}
	if config.NATSConfig != nil {
		obs, conn, err := notify.DialNATS(config.NATSConfig.URL, config.NATSConfig.Subject)
		if err != nil {
			log.Fatalf("Failed to connect to NATS: %v", err)
		}
		defer conn.Close()
		observers = append(observers, obs)
	}

	// Open the tree and start the inserter thread.
	store, err := openStore(config.DatabaseConfig)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer store.Close()

	gauges := treeMetrics(prometheus.DefaultRegisterer, config.TreeConfig.Levels)
	observers = append(observers, gauges)

	acc, err := accumulator.Open(config.TreeConfig.suite, config.TreeConfig.Levels, store, observers)
	if err != nil {
		log.Fatalf("Failed to initialize tree: %v", err)
	}
	gauges.Set(acc.Size())
	log.Printf("Opened tree: suite=%v, levels=%v, size=%v, root=%v",
		acc.Suite().Name(), acc.Levels(), acc.Size(), acc.Root())

	ch := make(chan InsertRequest)
	go inserter(acc, ch)

	if config.MetricsAddr != "" {
		go metrics(config.MetricsAddr, acc)
	}

	// Setup the API server.
	h := &Handler{config: config.APIConfig, acc: acc, ch: ch}
	srv := &http.Server{
		Addr:      config.ServerAddr,
		Handler:   newRouter(h),
		TLSConfig: config.tlsConfig,

		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       30 * time.Second,
	}

	log.Println("Starting API server.")
	if config.TLSConfig == nil {
		log.Fatal(srv.ListenAndServe())
	} else {
		log.Fatal(srv.ListenAndServeTLS("", ""))
	}
}
