// Command kmf-master runs the master side of a KMF session: it opens the
// physical mouse/keyboard devices named on the command line (if any),
// runs the driver loop, and serves connecting slaves.
package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/inputbridge/kmf"
	"github.com/inputbridge/kmf/device"
	"github.com/inputbridge/kmf/driver"
	"github.com/inputbridge/kmf/master"
)

func main() {
	transportFlag := flag.String("transport", "tcp", "Transport backend (tcp, quic)")
	bindFlag := flag.String("bind", kmf.DefaultBindAddr, "Address to listen on")
	mouseFlag := flag.String("mouse", "", "Path to the physical mouse device node (e.g. /dev/input/event4)")
	keyboardFlag := flag.String("keyboard", "", "Path to the physical keyboard device node (e.g. /dev/input/event3)")
	metricsAddrFlag := flag.String("metrics-addr", os.Getenv("KMF_METRICS_ADDR"), "Address to serve Prometheus metrics on (empty disables)")

	flag.Usage = printUsage
	flag.Parse()

	metrics := kmf.NewPrometheusMetrics()
	if *metricsAddrFlag != "" {
		go serveMetrics(*metricsAddrFlag, metrics)
	}

	cfg := kmf.NewConfig(
		kmf.WithTransport(kmf.ParseTransportKind(*transportFlag)),
		kmf.WithBindAddr(*bindFlag),
		kmf.WithMetrics(metrics),
	)

	reader, err := device.OpenReader(*mouseFlag, *keyboardFlag)
	if err != nil {
		log.Fatalf("kmf-master: %v", err)
	}
	writer, err := device.NewWriter("kmf-master-virtual", reader.AvailableKeys(), reader.AvailableAxes())
	if err != nil {
		log.Fatalf("kmf-master: virtual device: %v", err)
	}

	svc := master.New(cfg)
	if err := svc.Start(); err != nil {
		log.Fatalf("kmf-master: %v", err)
	}
	log.Printf("kmf-master: listening on %s (%s)", cfg.BindAddr, cfg.Transport)

	status := &kmf.MasterStatus{}
	var running atomic.Bool
	loop := driver.New(reader, writer, svc.Hub(), status, &running, metrics, cfg.DriverPoll)

	go loop.Run()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	log.Printf("kmf-master: shutting down")
	loop.Stop()
	svc.Stop()
	_ = writer.Close()
	_ = reader.Close()
}

func serveMetrics(addr string, metrics *kmf.PrometheusMetrics) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	log.Printf("kmf-master: serving metrics on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Printf("kmf-master: metrics server: %v", err)
	}
}

func printUsage() {
	fmt.Println("kmf-master - remote input-sharing master")
	fmt.Println("Usage:")
	fmt.Println("  kmf-master [-transport tcp|quic] [-bind addr] [-mouse path] [-keyboard path] [-metrics-addr addr]")
	fmt.Println()
	fmt.Println("Example:")
	fmt.Println("  kmf-master -mouse /dev/input/event4 -keyboard /dev/input/event3")
	fmt.Println("  kmf-master -transport quic -bind 0.0.0.0:8081")
}
