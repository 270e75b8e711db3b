package main

// ============================================================================
// Demo: runs a full replication batch against the embedded stub control
// plane, no live CouchDB required.
//
//   go run cmd/demo/main.go            # all jobs succeed
//   go run cmd/demo/main.go failfast   # one database fails, batch aborts
// ============================================================================

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/ChuLiYu/couch-replicate/internal/controller"
	"github.com/ChuLiYu/couch-replicate/internal/couchdb"
	"github.com/ChuLiYu/couch-replicate/internal/progress"
	"github.com/ChuLiYu/couch-replicate/internal/server"
	"github.com/ChuLiYu/couch-replicate/internal/worker"
)

func main() {
	mode := "success"
	if len(os.Args) > 1 {
		mode = os.Args[1]
	}

	stub := server.New()
	var databases []string
	for i := 1; i <= 20; i++ {
		databases = append(databases, fmt.Sprintf("db-%02d", i))
	}
	stub.AddDatabases(databases...)

	if mode == "failfast" {
		stub.FailInitial("db-13")
		fmt.Println("Demo: db-13 will fail its initial replication")
	}

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	go http.Serve(lis, stub.Handler())
	endpoint := "http://" + lis.Addr().String()

	fmt.Printf("Stub control plane listening on %s\n", endpoint)

	client := couchdb.NewClient(10*time.Second, slog.Default(), false)
	runner := worker.NewRunner(client, slog.Default())

	names := controller.FilterDatabases(databases, controller.FilterOptions{})
	reporter := progress.NewReporter(len(names), false)

	ctrl := controller.New(controller.Config{
		Source:      endpoint,
		Target:      endpoint,
		Concurrency: 4,
	}, runner, reporter, nil)

	start := time.Now()
	result := ctrl.Run(names)

	fmt.Printf("\nBatch finished in %s: %d/%d completed\n",
		time.Since(start).Round(time.Millisecond), result.Completed, result.Total)

	if !result.Succeeded() {
		fmt.Printf("First failure: %s\n", result.Failure.Message())
		os.Exit(1)
	}
	fmt.Printf("%d databases replicated\n", result.Total)
}
