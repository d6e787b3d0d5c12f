package main

type ReadCmd struct {
	Source string `arg:"positional,required" help:"file path or http(s) URL to read through the cache"`
	Passes int    `arg:"--passes" help:"number of times to read the source" default:"2"`
}

type BenchCmd struct {
	Source   string `arg:"positional,required" help:"file path or http(s) URL to read through the cache"`
	Workers  int    `arg:"--workers" help:"number of concurrent readers" default:"8"`
	Reads    int    `arg:"--reads" help:"number of random reads" default:"1000"`
	ReadSize string `arg:"--read-size" help:"size of each read" default:"64KiB"`
}

type ParsePathsCmd struct {
	Paths string `arg:"positional,required" help:"semicolon separated list of disk paths"`
}

type Arguments struct {
	Read       *ReadCmd       `arg:"subcommand:read" help:"read a file through the cache"`
	Bench      *BenchCmd      `arg:"subcommand:bench" help:"run random reads against a file through the cache"`
	ParsePaths *ParsePathsCmd `arg:"subcommand:parse-paths" help:"validate a disk path list"`

	Config          string `arg:"-c,--config" help:"path of the TOML configuration file"`
	Engine          string `arg:"--engine" help:"cache engine" valid:"hybrid,memory,lfu"`
	BlockSize       string `arg:"--block-size" help:"block size, such as 1MiB"`
	MemSpaceSize    string `arg:"--mem" help:"memory quota, such as 64MiB"`
	DiskPaths       string `arg:"--disk-paths" help:"semicolon separated list of disk paths"`
	DiskSpaceSize   string `arg:"--disk-size" help:"disk quota per path, such as 10GiB"`
	PrefetchWorkers int    `arg:"--prefetch-workers" help:"number of workers to prefetch content" default:"50"`
	MetricsAddr     string `arg:"--metrics-addr" help:"address to serve prometheus metrics on"`
	Report          bool   `arg:"--report" help:"print a metrics report at exit"`
	Version         bool   `arg:"-v" help:"show version and exit"`
	LogLevel        string `arg:"--log-level" help:"set the log level, overrides the configuration file" valid:"debug,info,warn,error,fatal,panic"`
}

var version string
