package cmd

import (
	"flag"
	"strings"

	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/sirupsen/logrus"

	"github.com/Doomsbay/FeedKit/feedkit/reader"
	"github.com/Doomsbay/FeedKit/feedkit/store"
)

// readerFlags are the options shared by every subcommand.
type readerFlags struct {
	format       *string
	input        *string
	pattern      *string
	mmap         *bool
	batchSize    *int
	prefetch     *int
	parallel     *int
	lastExample  *string
	badExample   *string
	warnBad      *bool
	skip         *uint64
	take         *int64
	shardIndex   *uint64
	numShards    *uint64
	sampleRatio  *float64
	shuffle      *bool
	shuffleWin   *uint64
	shuffleSeed  *int64
	noReshuffle  *bool
	csvHeader    *int64
	csvDelimiter *string
	imageDims    *string
	verbose      *bool
}

func addReaderFlags(fs *flag.FlagSet) *readerFlags {
	return &readerFlags{
		format:       fs.String("format", "csv", "Dataset format: csv, text, recordio, image, parquet"),
		input:        fs.String("input", "", "Comma-separated files, directories, or s3:// URIs"),
		pattern:      fs.String("pattern", "", "Glob applied to candidate store identifiers"),
		mmap:         fs.Bool("mmap", false, "Memory-map local files"),
		batchSize:    fs.Int("batch-size", 1, "Instances per example"),
		prefetch:     fs.Int("prefetch", 0, "Prefetched examples (0 = CPU count)"),
		parallel:     fs.Int("parallel", 0, "Parallel decodes (0 = prefetch count)"),
		lastExample:  fs.String("last-example", "none", "Last example handling: none, drop, drop+warn, pad, pad+warn"),
		badExample:   fs.String("bad-example", "error", "Bad example handling: error, skip, skip+warn, pad, pad+warn"),
		warnBad:      fs.Bool("warn-bad-instances", false, "Warn for every discarded bad instance"),
		skip:         fs.Uint64("skip", 0, "Instances to skip from the start"),
		take:         fs.Int64("take", -1, "Instances to read after the skip (-1 = all)"),
		shardIndex:   fs.Uint64("shard-index", 0, "Shard to read"),
		numShards:    fs.Uint64("num-shards", 0, "Total shards (0 or 1 disables sharding)"),
		sampleRatio:  fs.Float64("sample-ratio", 0, "Subsampling ratio in (0,1); 0 disables"),
		shuffle:      fs.Bool("shuffle", false, "Shuffle instances"),
		shuffleWin:   fs.Uint64("shuffle-window", 0, "Shuffle window (0 = whole epoch)"),
		shuffleSeed:  fs.Int64("shuffle-seed", -1, "Shuffle seed (-1 = random)"),
		noReshuffle:  fs.Bool("no-reshuffle", false, "Replay the same order every epoch"),
		csvHeader:    fs.Int64("csv-header", 0, "CSV header row index (-1 = no header)"),
		csvDelimiter: fs.String("csv-delimiter", ",", "CSV field delimiter"),
		imageDims:    fs.String("image-dims", "", "Image dimensions as channels,height,width"),
		verbose:      fs.Bool("verbose", false, "Enable debug logging"),
	}
}

func (f *readerFlags) buildParams() (reader.Params, error) {
	if *f.verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}

	params := reader.DefaultParams()
	params.BatchSize = *f.batchSize
	params.NumPrefetchedExamples = *f.prefetch
	params.NumParallelReads = *f.parallel
	params.LastExampleHandling = parseLastExample(*f.lastExample)
	params.BadExampleHandling = parseBadExample(*f.badExample)
	params.WarnBadInstances = *f.warnBad
	params.NumInstancesToSkip = *f.skip
	if *f.take >= 0 {
		params.NumInstancesToRead = reader.Uint64(uint64(*f.take))
	}
	params.ShardIndex = *f.shardIndex
	params.NumShards = *f.numShards
	if *f.sampleRatio > 0 {
		params.SampleRatio = reader.Float64(*f.sampleRatio)
	}
	params.ShuffleInstances = *f.shuffle
	params.ShuffleWindow = *f.shuffleWin
	if *f.shuffleSeed >= 0 {
		params.ShuffleSeed = reader.Uint64(uint64(*f.shuffleSeed))
	}
	params.ReshuffleEachEpoch = !*f.noReshuffle

	dataset, err := f.buildDataset()
	if err != nil {
		return params, err
	}
	params.Dataset = dataset
	return params, nil
}

func (f *readerFlags) buildDataset() ([]store.Store, error) {
	var local, remote []string
	for _, in := range splitList(*f.input) {
		if strings.HasPrefix(in, "s3://") {
			remote = append(remote, in)
		} else {
			local = append(local, in)
		}
	}

	var dataset []store.Store
	if len(local) > 0 {
		stores, err := store.ListFiles(store.ListFilesParams{
			Pathnames: local,
			Pattern:   *f.pattern,
			MMap:      *f.mmap,
		})
		if err != nil {
			return nil, err
		}
		dataset = append(dataset, stores...)
	}
	if len(remote) > 0 {
		sess, err := session.NewSession()
		if err != nil {
			return nil, err
		}
		client := store.NewS3Client(s3.New(sess))
		stores, err := store.ListS3Objects(client, store.ListS3ObjectsParams{
			URIs:    remote,
			Pattern: *f.pattern,
		})
		if err != nil {
			return nil, err
		}
		dataset = append(dataset, stores...)
	}
	return dataset, nil
}

func (f *readerFlags) buildReader() (*reader.Reader, error) {
	params, err := f.buildParams()
	if err != nil {
		return nil, err
	}

	switch *f.format {
	case "text":
		return reader.NewTextLineReader(params)
	case "recordio":
		return reader.NewRecordIOProtobufReader(params)
	case "parquet":
		return reader.NewParquetReader(params)
	case "image":
		dims, err := parseDims(*f.imageDims)
		if err != nil {
			return nil, err
		}
		return reader.NewImageReader(params, reader.ImageParams{Dimensions: dims})
	case "csv":
		csvParams := reader.DefaultCSVParams()
		if *f.csvHeader < 0 {
			csvParams.HeaderRowIndex = nil
		} else {
			csvParams.HeaderRowIndex = reader.Uint64(uint64(*f.csvHeader))
		}
		if *f.csvDelimiter != "" {
			csvParams.Delimiter = (*f.csvDelimiter)[0]
		}
		return reader.NewCSVReader(params, csvParams)
	}
	return nil, errUnknownFormat(*f.format)
}

func parseLastExample(v string) reader.LastExampleHandling {
	switch v {
	case "drop":
		return reader.LastExampleDrop
	case "drop+warn":
		return reader.LastExampleDropWarn
	case "pad":
		return reader.LastExamplePad
	case "pad+warn":
		return reader.LastExamplePadWarn
	}
	return reader.LastExampleNone
}

func parseBadExample(v string) reader.BadExampleHandling {
	switch v {
	case "skip":
		return reader.BadExampleSkip
	case "skip+warn":
		return reader.BadExampleSkipWarn
	case "pad":
		return reader.BadExamplePad
	case "pad+warn":
		return reader.BadExamplePadWarn
	}
	return reader.BadExampleError
}
