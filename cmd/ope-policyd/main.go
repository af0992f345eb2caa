package main

import (
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"

	"google.golang.org/grpc"

	"github.com/danielpatrickdp/ope-controller/internal/policy"
)

func main() {
	addr := flag.String("addr", "localhost:50061", "listen address")
	tablePath := flag.String("table", "", "path to tabular policy JSON")
	flag.Parse()

	if *tablePath == "" {
		fmt.Fprintln(os.Stderr, "usage: ope-policyd --table path/to/table.json [--addr host:port]")
		os.Exit(2)
	}

	table, err := policy.LoadTabular(*tablePath)
	if err != nil {
		log.Fatalf("load policy: %v", err)
	}

	lis, err := net.Listen("tcp", *addr)
	if err != nil {
		log.Fatalf("listen %s: %v", *addr, err)
	}

	srv := grpc.NewServer()
	policy.Register(srv, table)

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		log.Println("[POLICYD] shutting down")
		srv.GracefulStop()
	}()

	log.Printf("[POLICYD] serving %d observations on %s", len(table.Probs), lis.Addr())
	if err := srv.Serve(lis); err != nil {
		log.Fatalf("serve: %v", err)
	}
}
