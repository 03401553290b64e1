package main

import (
	"fmt"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/thomask77/add-version-info/internal/buildmeta"
)

var (
	// Global flags
	verbose    bool
	quiet      bool
	jsonOut    bool
	rawFile    bool
	force      bool
	vcsCommand string
	crcFlag    string
	layoutPath string
	vcsTimeout time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "add-version-info [flags] <source> [target]",
	Short: "Add CRC checksum and version information to ELF and binary files",
	Long: `add-version-info post-processes a linked firmware image to embed build
metadata (version control id, build user/host/date/time, image bounds) into
a marker-delimited record, and forges the record's checksum field so that a
CRC32 over the entire image equals a chosen target value.

The target file defaults to the source file, which is then overwritten in
place (atomically, via temp file + rename).`,
	Example: `  # Patch an ELF in place, image CRC32 scans to 0x00000000
  add-version-info firmware.elf

  # Patch a flat binary into a new file with a custom target CRC
  add-version-info --raw --crc 0xC704DD7B firmware.bin firmware-release.bin

  # Subversion project
  add-version-info -c "svnversion -n" firmware.elf`,
	Version:       "2.1.0",
	Args:          cobra.RangeArgs(1, 2),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		log.SetOutput(os.Stderr)
		log.SetFormatter(&log.TextFormatter{DisableTimestamp: true})
		switch {
		case quiet:
			log.SetLevel(log.ErrorLevel)
		case verbose:
			log.SetLevel(log.DebugLevel)
		default:
			log.SetLevel(log.InfoLevel)
		}
	},
	RunE: runPatch,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Print status messages")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress all output except errors")
	rootCmd.Flags().BoolVar(&jsonOut, "json", false, "Print the patch report as JSON on stdout")
	rootCmd.Flags().BoolVarP(&rawFile, "raw", "r", false, "Patch a flat binary file instead of an ELF")
	rootCmd.Flags().BoolVarP(&force, "force", "f", false, "Force update if already filled out")
	rootCmd.Flags().StringVarP(&vcsCommand, "command", "c", buildmeta.DefaultCommand,
		`Version control command (use "svnversion -n" for subversion projects)`)
	rootCmd.Flags().StringVar(&crcFlag, "crc", "0x00000000", "Desired CRC result for the image")
	rootCmd.Flags().StringVar(&layoutPath, "layout", "", "YAML record layout descriptor (default: built-in VCSINFO2 layout)")
	rootCmd.Flags().DurationVar(&vcsTimeout, "timeout", 10*time.Second, "Timeout for the version control command")
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
