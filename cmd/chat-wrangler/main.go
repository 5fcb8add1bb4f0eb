package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"chat-wrangler/cleaning"
	"chat-wrangler/config"
	"chat-wrangler/transcribe"
	"chat-wrangler/wrangling"

	"github.com/dustin/go-humanize"
)

const (
	defaultInterimDir   = "data/interim"
	defaultProcessedDir = "data/processed"
)

func usage() {
	fmt.Fprintln(os.Stderr, "usage: chat-wrangler <clean|wrangle|transcribe|steps> [flags]")
	os.Exit(2)
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	if len(os.Args) < 2 {
		usage()
	}
	cmd, args := os.Args[1], os.Args[2:]
	var err error
	switch cmd {
	case "clean":
		err = runClean(args)
	case "wrangle":
		err = runWrangle(args)
	case "transcribe":
		err = runTranscribe(args)
	case "steps":
		runSteps(args)
	default:
		usage()
	}
	if err != nil {
		log.Fatalf("%s: %v", cmd, err)
	}
}

// closingTranscriber is a Transcriber holding a client that must be released.
type closingTranscriber interface {
	transcribe.Transcriber
	Close() error
}

var newTranscriber = func(ctx context.Context, cfg transcribe.VertexConfig) (closingTranscriber, error) {
	return transcribe.NewVertexTranscriber(ctx, cfg)
}

// commonFlags are accepted by every subcommand. Values from the config file are
// used unless the flag was given on the command line.
type commonFlags struct {
	configPath   string
	input        string
	interimDir   string
	processedDir string
	mediaDir     string
	debug        bool
}

func (c *commonFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&c.configPath, "config", "", "YAML config file path.")
	fs.StringVar(&c.input, "input", "", "Raw chat transcript (overrides config.input).")
	fs.StringVar(&c.interimDir, "interim-dir", defaultInterimDir, "Directory for cleaned intermediate files.")
	fs.StringVar(&c.processedDir, "processed-dir", defaultProcessedDir, "Directory for exported datasets.")
	fs.StringVar(&c.mediaDir, "media-dir", "", "Directory with the exported media files.")
	fs.BoolVar(&c.debug, "debug", false, "Enable debug logs.")
}

type settings struct {
	file         *config.FileConfig
	visited      map[string]bool
	input        string
	interimDir   string
	processedDir string
	mediaDir     string
	debug        bool
}

func parseCommon(fs *flag.FlagSet, c *commonFlags, args []string) *settings {
	if err := fs.Parse(args); err != nil {
		os.Exit(2)
	}
	visited := map[string]bool{}
	fs.Visit(func(f *flag.Flag) {
		visited[f.Name] = true
	})

	fileCfg := &config.FileConfig{}
	if c.configPath != "" {
		cfg, err := config.LoadConfig(c.configPath)
		if err != nil {
			log.Fatalf("load config: %v", err)
		}
		fileCfg = cfg
	}

	s := &settings{file: fileCfg, visited: visited}
	s.input = fileCfg.Input
	if visited["input"] {
		s.input = c.input
	}
	s.interimDir = fileCfg.InterimDir
	if s.interimDir == "" {
		s.interimDir = defaultInterimDir
	}
	if visited["interim-dir"] {
		s.interimDir = c.interimDir
	}
	s.processedDir = fileCfg.ProcessedDir
	if s.processedDir == "" {
		s.processedDir = defaultProcessedDir
	}
	if visited["processed-dir"] {
		s.processedDir = c.processedDir
	}
	s.mediaDir = fileCfg.MediaDir
	if visited["media-dir"] {
		s.mediaDir = c.mediaDir
	}
	s.debug = fileCfg.Debug
	if visited["debug"] {
		s.debug = c.debug
	}
	return s
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func newRegistry(fileCfg *config.FileConfig) *cleaning.Registry {
	participants := make([]cleaning.Participant, 0, len(fileCfg.Participants.Items))
	for _, p := range fileCfg.Participants.Items {
		participants = append(participants, cleaning.Participant{Name: p.Name, Token: p.Token})
	}
	return cleaning.NewRegistry(cleaning.RegistryOptions{Participants: participants})
}

func cleaningOrder(s *settings, registry *cleaning.Registry, stepsCSV string) []string {
	order := s.file.CleaningSteps
	if len(order) == 0 {
		order = registry.IDs()
	}
	if s.visited["steps"] {
		order = splitCSV(stepsCSV)
	}
	return order
}

func runClean(args []string) error {
	fs := flag.NewFlagSet("clean", flag.ExitOnError)
	var common commonFlags
	common.register(fs)
	var stepsCSV string
	var auditDB string
	fs.StringVar(&stepsCSV, "steps", "", "Comma-separated cleaning step ids, in run order (overrides config.cleaning_steps).")
	fs.StringVar(&auditDB, "audit-db", "", "SQLite audit ledger path (overrides config.audit_db).")
	s := parseCommon(fs, &common, args)

	if strings.TrimSpace(s.input) == "" {
		fmt.Fprintln(os.Stderr, "missing input (use --input or config.yaml input)")
		os.Exit(2)
	}
	finalAuditDB := s.file.AuditDB
	if s.visited["audit-db"] {
		finalAuditDB = auditDB
	}

	registry := newRegistry(s.file)
	order := cleaningOrder(s, registry, stepsCSV)

	profile, err := cleaning.Profile(s.input)
	if err != nil {
		return err
	}
	log.Printf("clean: %s size=%s lines=%d empty=%d chars=%d avg=%.1f chars/line",
		profile.Path, humanize.IBytes(uint64(profile.SizeBytes)), profile.TotalLines, profile.EmptyLines,
		profile.TotalChars, profile.AvgCharsPerLine)

	pipeline, err := cleaning.NewPipeline(registry, s.debug)
	if err != nil {
		return fmt.Errorf("init cleaning pipeline: %w", err)
	}
	res, err := pipeline.Run(order, s.input, s.interimDir)
	if err != nil {
		return err
	}
	fmt.Print(res.Summary())

	if strings.TrimSpace(finalAuditDB) != "" {
		runID, err := recordAudit(finalAuditDB, res)
		if err != nil {
			return err
		}
		log.Printf("clean: audit run %s recorded in %s", runID, finalAuditDB)
	}
	log.Printf("clean: final output %s", res.FinalOutput)
	return nil
}

func recordAudit(path string, res *cleaning.RunResult) (string, error) {
	ledger, err := cleaning.OpenLedger(path)
	if err != nil {
		return "", fmt.Errorf("open audit ledger: %w", err)
	}
	defer ledger.Close()
	runID, err := ledger.Record(res)
	if err != nil {
		return "", fmt.Errorf("record audit: %w", err)
	}
	return runID, nil
}

func runWrangle(args []string) error {
	fs := flag.NewFlagSet("wrangle", flag.ExitOnError)
	var common commonFlags
	common.register(fs)
	var cleaned string
	var stagesCSV string
	var formatsCSV string
	var transcriptions string
	var cleaningStepsCSV string
	fs.StringVar(&cleaned, "cleaned", "", "Cleaned transcript to parse. Defaults to the last output of the cleaning pipeline.")
	fs.StringVar(&stagesCSV, "stages", "", "Comma-separated wrangling stages (overrides config.wrangling_steps).")
	fs.StringVar(&formatsCSV, "formats", "", "Comma-separated export formats (overrides config.export_formats).")
	fs.StringVar(&transcriptions, "transcriptions", "", "Transcription table CSV (overrides config.transcriptions).")
	fs.StringVar(&cleaningStepsCSV, "steps", "", "Cleaning steps the input went through; used to locate the cleaned file.")
	s := parseCommon(fs, &common, args)

	finalCleaned := cleaned
	if finalCleaned == "" {
		if strings.TrimSpace(s.input) == "" {
			fmt.Fprintln(os.Stderr, "missing input (use --cleaned, --input or config.yaml input)")
			os.Exit(2)
		}
		order := cleaningOrder(s, newRegistry(s.file), cleaningStepsCSV)
		finalCleaned = cleaning.OutputPath(s.input, s.interimDir, len(order))
		if len(order) == 0 {
			finalCleaned = s.input
		}
	}

	stages := s.file.WranglingSteps
	if len(stages) == 0 {
		for _, st := range wrangling.DefaultStages {
			stages = append(stages, string(st))
		}
	}
	if s.visited["stages"] {
		stages = splitCSV(stagesCSV)
	}
	formats := s.file.ExportFormats
	if s.visited["formats"] {
		formats = splitCSV(formatsCSV)
	}
	finalTranscriptions := s.file.Transcriptions
	if finalTranscriptions == "" {
		finalTranscriptions = filepath.Join(transcriptionDir(s), transcribe.CompleteFileName)
	}
	if s.visited["transcriptions"] {
		finalTranscriptions = transcriptions
	}

	pipeline, err := wrangling.NewPipeline(wrangling.PipelineConfig{
		InputFile:         finalCleaned,
		OutputDir:         s.processedDir,
		MediaDir:          s.mediaDir,
		TranscriptionFile: finalTranscriptions,
		ExportFormats:     formats,
		Debug:             s.debug,
	})
	if err != nil {
		return fmt.Errorf("init wrangling pipeline: %w", err)
	}
	res, err := pipeline.Run(stages)
	if err != nil {
		return err
	}

	st := res.Stats
	log.Printf("wrangle: lines=%d messages=%d attachments=%d found=%d transcribed=%d enriched=%d",
		st.InputLines, st.Messages, st.AttachmentsReferenced, st.AttachmentsFound, st.WithTranscription, st.Enriched)
	for t, n := range st.TypeCounts {
		log.Printf("wrangle: type %s=%d", t, n)
	}
	for _, f := range st.Exported {
		log.Printf("wrangle: %s -> %s (%s, %d cols)", f.Format, f.Path, humanize.IBytes(uint64(f.SizeBytes)), f.Columns)
	}
	for _, f := range st.Corpus {
		log.Printf("wrangle: corpus %s (%d messages)", f.Path, f.Messages)
	}
	for _, sk := range st.Skipped {
		log.Printf("wrangle: skipped %s", wrangling.StageName(sk))
	}
	return nil
}

func transcriptionDir(s *settings) string {
	if s.file.Transcribe.OutputDir != "" {
		return s.file.Transcribe.OutputDir
	}
	return s.processedDir
}

func runTranscribe(args []string) error {
	fs := flag.NewFlagSet("transcribe", flag.ExitOnError)
	var common commonFlags
	common.register(fs)
	var outputDir string
	var saveEvery int
	var maxFileMB int
	var project string
	var region string
	var model string
	fs.StringVar(&outputDir, "output-dir", "", "Directory for the progress and complete tables (overrides config.transcribe.output_dir).")
	fs.IntVar(&saveEvery, "save-every", transcribe.DefaultSaveEvery, "Save progress every N processed files.")
	fs.IntVar(&maxFileMB, "max-file-mb", 25, "Skip media files larger than this many MiB.")
	fs.StringVar(&project, "project", "", "Google Cloud project for Vertex AI.")
	fs.StringVar(&region, "region", "", "Vertex AI region, e.g. us-central1.")
	fs.StringVar(&model, "model", "", "Vertex AI model name.")
	s := parseCommon(fs, &common, args)

	tc := s.file.Transcribe
	finalOutputDir := transcriptionDir(s)
	if s.visited["output-dir"] {
		finalOutputDir = outputDir
	}
	finalSaveEvery := tc.SaveEvery
	if s.visited["save-every"] {
		finalSaveEvery = saveEvery
	}
	finalMaxMB := tc.MaxFileMB
	if s.visited["max-file-mb"] {
		finalMaxMB = maxFileMB
	}
	vc := transcribe.VertexConfig{
		ProjectID: tc.Vertex.Project,
		Region:    tc.Vertex.Region,
		Model:     tc.Vertex.Model,
		Language:  tc.Vertex.Language,
	}
	if s.visited["project"] {
		vc.ProjectID = project
	}
	if s.visited["region"] {
		vc.Region = region
	}
	if s.visited["model"] {
		vc.Model = model
	}

	if strings.TrimSpace(s.mediaDir) == "" {
		fmt.Fprintln(os.Stderr, "missing media dir (use --media-dir or config.yaml media_dir)")
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	transcriber, err := newTranscriber(ctx, vc)
	if err != nil {
		return fmt.Errorf("init transcriber: %w", err)
	}
	defer transcriber.Close()

	batch, err := transcribe.NewBatch(transcribe.BatchConfig{
		MediaDir:     s.mediaDir,
		OutputDir:    finalOutputDir,
		SaveEvery:    finalSaveEvery,
		MaxFileBytes: int64(finalMaxMB) << 20,
		Formats:      tc.Formats,
		Debug:        s.debug,
	}, transcriber)
	if err != nil {
		return fmt.Errorf("init batch: %w", err)
	}

	sum, err := batch.Run(ctx)
	if err != nil {
		if sum != nil {
			log.Printf("transcribe: stopped after %d files; %d pending, progress saved in %s", sum.Processed, sum.Pending, sum.OutputPath)
		}
		return err
	}
	if sum.AlreadyComplete {
		log.Printf("transcribe: %s already complete (%d rows)", sum.OutputPath, len(sum.Rows))
		return nil
	}
	log.Printf("transcribe: processed=%d completed=%d errors=%d -> %s", sum.Processed, sum.Completed, sum.Errors, sum.OutputPath)
	return nil
}

func runSteps(args []string) {
	fs := flag.NewFlagSet("steps", flag.ExitOnError)
	var common commonFlags
	common.register(fs)
	s := parseCommon(fs, &common, args)

	for _, step := range newRegistry(s.file).Steps() {
		fmt.Printf("%-18s %s\n", step.ID, step.Name)
	}
}
