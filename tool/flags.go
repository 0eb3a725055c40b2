package tool

import (
	"flag"
	"os"

	"github.com/moyoez/docconvert-go/types"
)

// SetFlags parses CLI flags and returns the override config.
func SetFlags() types.Config {
	return ParseFlags(flag.CommandLine, os.Args[1:])
}

// ParseFlags registers the flags on fs and parses args.
func ParseFlags(fs *flag.FlagSet, args []string) types.Config {
	var cfg types.Config
	fs.StringVar(&cfg.Log, "log", "", "log mode: dev|prod|none")
	fs.StringVar(&cfg.UseConfigPath, "config", "", "override config file path")
	fs.StringVar(&cfg.UseServer, "server", "", "override conversion server URL")
	fs.StringVar(&cfg.UseMode, "mode", "", "conversion mode: pdf|image")
	fs.StringVar(&cfg.UseLang, "lang", "", "OCR language (pdf mode only)")
	fs.StringVar(&cfg.UseFiles, "files", "", "comma separated list of files to convert")
	fs.StringVar(&cfg.UseOutPath, "out", "", "save the converted archive to this path once completed")
	fs.BoolVar(&cfg.UseServe, "serve", false, "run the local control API instead of a one-shot conversion")
	fs.IntVar(&cfg.UsePort, "port", 0, "override local control API port")
	fs.StringVar(&cfg.UseNotifySock, "notifySocket", "", "unix socket that receives terminal session notifications")
	fs.BoolVar(&cfg.UsePreflight, "preflight", false, "probe the server host with ICMP before starting")
	_ = fs.Parse(args)
	return cfg
}
