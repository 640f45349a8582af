// Command kmf-slave connects to a KMF master and replays received input
// events on a virtual device until the master disconnects.
package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/inputbridge/kmf"
	"github.com/inputbridge/kmf/device"
	"github.com/inputbridge/kmf/slave"
)

func main() {
	transportFlag := flag.String("transport", "tcp", "Transport backend (tcp, quic)")
	addrFlag := flag.String("addr", "127.0.0.1:8081", "Master address to connect to")
	dropDirFlag := flag.String("drop-dir", ".", "Directory file drops are written to and served from")
	metricsAddrFlag := flag.String("metrics-addr", os.Getenv("KMF_METRICS_ADDR"), "Address to serve Prometheus metrics on (empty disables)")

	flag.Usage = printUsage
	flag.Parse()

	metrics := kmf.NewPrometheusMetrics()
	if *metricsAddrFlag != "" {
		go serveMetrics(*metricsAddrFlag, metrics)
	}

	cfg := kmf.NewConfig(
		kmf.WithTransport(kmf.ParseTransportKind(*transportFlag)),
		kmf.WithMetrics(metrics),
	)

	writer, err := device.NewWriter("kmf-slave-virtual", device.FullKeyRange(), device.FullAxisRange())
	if err != nil {
		log.Fatalf("kmf-slave: virtual device: %v", err)
	}
	defer writer.Close()

	svc := slave.New(cfg, writer, *dropDirFlag)
	log.Printf("kmf-slave: connecting to %s (%s)", *addrFlag, cfg.Transport)
	if err := svc.Run(*addrFlag); err != nil {
		log.Fatalf("kmf-slave: %v", err)
	}
	log.Printf("kmf-slave: session ended")
}

func serveMetrics(addr string, metrics *kmf.PrometheusMetrics) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	log.Printf("kmf-slave: serving metrics on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Printf("kmf-slave: metrics server: %v", err)
	}
}

func printUsage() {
	fmt.Println("kmf-slave - remote input-sharing slave")
	fmt.Println("Usage:")
	fmt.Println("  kmf-slave [-transport tcp|quic] -addr host:port [-drop-dir dir] [-metrics-addr addr]")
	fmt.Println()
	fmt.Println("Example:")
	fmt.Println("  kmf-slave -addr 192.168.1.10:8081")
	fmt.Println("  kmf-slave -transport quic -addr 192.168.1.10:8081")
}
