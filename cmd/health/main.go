// Command health probes a collaborator's /healthz endpoint and exits
// non-zero when it is unreachable or unhealthy. Suitable for container
// health checks and CI gates.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
)

func main() {
	url := flag.String("url", "http://localhost:5001/healthz", "health endpoint to probe")
	timeout := flag.Duration("timeout", 3*time.Second, "per-probe timeout")
	attempts := flag.Int("attempts", 1, "probes before giving up")
	flag.Parse()

	c := &fasthttp.Client{
		ReadTimeout:  *timeout,
		WriteTimeout: *timeout,
	}

	var lastErr error
	for i := 0; i < *attempts; i++ {
		if i > 0 {
			time.Sleep(time.Second)
		}
		status, body, err := c.GetTimeout(nil, *url, *timeout)
		if err != nil {
			lastErr = err
			continue
		}
		if status != fasthttp.StatusOK {
			lastErr = fmt.Errorf("status %d", status)
			continue
		}
		if !strings.Contains(string(body), "ok") {
			lastErr = fmt.Errorf("unexpected body %q", string(body))
			continue
		}
		fmt.Println("ok")
		return
	}
	fmt.Fprintln(os.Stderr, "unhealthy:", lastErr)
	os.Exit(1)
}
