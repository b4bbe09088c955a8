// Copyright 2019 Radiation Detection and Imaging (RDI), LLC
// Use of this source code is governed by the BSD 3-clause
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"runtime/pprof"
	"strings"
	"time"

	"github.com/rditech/ccam-reflectance/live"
	"github.com/rditech/ccam-reflectance/spectra"

	"github.com/alicebob/miniredis"
	"github.com/go-redis/redis"
	"github.com/sevlyar/go-daemon"
	"github.com/skratchdot/open-golang/open"
)

var (
	openBrowser = flag.Bool("b", false, "open a browser window and connect to server")
	daemonize   = flag.Bool("d", false, "run the server as a daemon")
	refDir      = flag.String("r", "", "directory holding reference spectra, overriding the built-in set")
	archiveUrl  = flag.String("a", "", "file:// or gs:// url to archive calibrated products to")
	plotFormat  = flag.String("plot", "", "also render a preview plot of each product (svg or png)")
	radCmd      = flag.String("radcmd", os.Getenv("CCAM_RADIANCE_CMD"), "command producing RAD files from PSV files")
	reportTTL   = flag.Duration("ttl", 24*time.Hour, "how long batch reports are kept")
	cpuProfile  = flag.String("cpuprofile", "", "output file for cpu profiling")
	listenHost  = flag.String("listen", "localhost", "interface to listen on, empty for all interfaces")
)

func printUsage() {
	fmt.Fprintf(os.Stderr,
		`Usage: `+os.Args[0]+` [options]

Serves a web front-end for relative reflectance calibration of ChemCam
passive spectra.

environment:
  PORT                  port to listen on (default 8080)
  REDIS_ADDR            redis server for batch reports (default in-process)
  CCAM_GCS_CREDENTIALS  service account json for gs:// archives
  CCAM_RADIANCE_CMD     default for -radcmd
  SECURE_ONLY           redirect proxied http requests to https

options:
`,
	)
	flag.PrintDefaults()
}

func main() {
	flag.Usage = printUsage
	flag.Parse()

	if *daemonize {
		ctxt := &daemon.Context{}
		d, err := ctxt.Reborn()
		if err != nil {
			log.Fatal("unable to daemonize server:", err)
		}
		if d != nil {
			return
		}
		defer ctxt.Release()
		log.Println("daemon started")
	}

	// Define redis connection
	redisAddr := os.Getenv("REDIS_ADDR")
	if len(redisAddr) == 0 {
		s, err := miniredis.Run()
		if err != nil {
			log.Fatal("unable to start miniredis server:", err)
		}
		defer s.Close()
		redisAddr = s.Addr()
	}
	redisClient := redis.NewClient(&redis.Options{Addr: redisAddr})
	defer redisClient.Close()
	ping := redisClient.Ping()
	if ping.Err() != nil {
		log.Fatalf("unable to ping redis server: %v\n", ping.Err())
	} else {
		log.Printf("successfully connected to redis server at %v with status %v\n", redisAddr, ping.String())
	}

	switch *plotFormat {
	case "", "svg", "png":
	default:
		log.Fatalf("unsupported plot format %q", *plotFormat)
	}

	server := &live.Server{
		Store:      &live.ReportStore{Redis: redisClient, TTL: *reportTTL},
		References: spectra.DefaultReferences,
		Radiance:   spectra.NoRadiance,
		PlotFormat: *plotFormat,
		Status:     &live.Status{},
	}
	server.Status.SetString("redis", redisAddr)
	server.Status.SetString("references", "built-in")
	if *refDir != "" {
		server.References = spectra.DirSource(*refDir)
		server.Status.SetString("references", *refDir)
	}
	if *radCmd != "" {
		cmd, err := spectra.ParseRadianceCommand(*radCmd)
		if err != nil {
			flag.Usage()
			log.Fatal("-radcmd: ", err)
		}
		server.Radiance = cmd
		server.Status.SetString("radiance", *radCmd)
	}
	if *archiveUrl != "" {
		server.Archive = &spectra.Archive{
			URL:         *archiveUrl,
			Credentials: os.Getenv("CCAM_GCS_CREDENTIALS"),
		}
		server.Status.SetString("archive", *archiveUrl)
	}
	if err := server.CheckReferences(); err != nil {
		log.Println("every calibration will fail until the references are installed:", err)
		server.Status.SetString("references error", err.Error())
	}

	// Define http server and routes
	port := os.Getenv("PORT")
	if len(port) == 0 {
		port = "8080"
	}
	router := server.Router()
	addr := listenAddr(*listenHost, port)

	srv := &http.Server{Addr: addr, Handler: router}
	switch strings.ToLower(os.Getenv("SECURE_ONLY")) {
	case "true", "on":
		log.Println("Enabling HTTP proxy securing middleware")
		srv = &http.Server{Addr: addr, Handler: Secure(router)}
	}

	// Turn on cpu profiling if output file is specified
	if *cpuProfile != "" {
		f, err := os.Create(*cpuProfile)
		if err != nil {
			log.Fatal("could not create cpu profile file: ", err)
		}
		pprof.StartCPUProfile(f)
		defer pprof.StopCPUProfile()
	}

	// Set up interrupt for nice quitting
	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt)
		<-c
		srv.Shutdown(context.Background())
	}()

	if *openBrowser {
		go func() {
			time.Sleep(10 * time.Millisecond)
			open.Run("http://localhost:" + port)
		}()
	}

	log.Println("http server started on " + addr)
	if err := srv.ListenAndServe(); err != nil {
		log.Println("ListenAndServe: ", err)
	}

	log.Println("successful quit")
}

// listenAddr keeps the server on the loopback interface unless another
// host is asked for, since requests name arbitrary local paths.
func listenAddr(host, port string) string {
	return net.JoinHostPort(host, port)
}

// Middleware for redirecting http requests that are behind an HTTP proxy to
// https
func Secure(next http.Handler) http.Handler {
	return http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			if strings.ToLower(r.Header.Get("x-forwarded-proto")) == "http" {
				target := "https://" + r.Host + r.URL.Path
				if len(r.URL.RawQuery) > 0 {
					target += "?" + r.URL.RawQuery
				}
				log.Printf("redirect to: %s", target)
				http.Redirect(w, r, target,
					http.StatusTemporaryRedirect)
				return
			}

			next.ServeHTTP(w, r)
		},
	)
}
