package config

// Application constants
const (
	// Application Info
	AppName    = "labfit"
	AppVersion = "1.0.0"

	// ConfigFileName is looked up next to the executable and then in the
	// working directory when no explicit path is given.
	ConfigFileName = "labfit.yaml"

	// Output tree layout: <root>/<experiment>/output/{data,image}
	OutputDirName = "output"
	DataDirName   = "data"
	ImageDirName  = "image"

	// InputFileName is the default measurement file inside the data directory
	InputFileName = "input.csv"

	// OutputSuffix joins the date token and the extension of every artifact
	OutputSuffix = "+output"

	// Logging defaults
	DefaultLogLevel    = "info"
	DefaultLogFormat   = "json"
	DefaultLogOutput   = "file"
	DefaultLogFileName = "labfit.log"

	// Report defaults
	DefaultChartWidth  = 1200
	DefaultChartHeight = 800

	// DefaultBatchWorkers bounds parallel experiments in batch mode
	DefaultBatchWorkers = 4
)
