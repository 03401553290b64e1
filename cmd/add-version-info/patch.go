package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/thomask77/add-version-info/internal/buildmeta"
	"github.com/thomask77/add-version-info/internal/image"
	"github.com/thomask77/add-version-info/internal/vcsinfo"
	"github.com/thomask77/add-version-info/internal/writer"
	"github.com/thomask77/add-version-info/pkg/patch"
)

// rawExtensions force raw-binary mode without the --raw flag.
var rawExtensions = []string{".bin", ".exe"}

func runPatch(cmd *cobra.Command, args []string) error {
	source := args[0]
	target := source
	if len(args) == 2 {
		target = args[1]
	}

	targetCRC, err := parseCRC(crcFlag)
	if err != nil {
		return err
	}

	layout := vcsinfo.DefaultLayout()
	if layoutPath != "" {
		if layout, err = vcsinfo.LoadLayout(layoutPath); err != nil {
			return err
		}
	}

	log.Debugf("loading %q...", source)
	fileData, err := os.ReadFile(source)
	if err != nil {
		return err
	}

	img, err := loadImage(source, fileData)
	if err != nil {
		return err
	}
	for _, s := range img.Sections() {
		log.Debugf("  %-16s: 0x%08X %8d", s.Name, s.LMA, len(s.Data))
	}

	log.Debugf("running %q...", vcsCommand)
	ctx, cancel := context.WithTimeout(cmd.Context(), vcsTimeout)
	defer cancel()
	meta, err := buildmeta.Collect(ctx, vcsCommand)
	if err != nil {
		return err
	}
	log.Debugf("  vcs id: %s", meta.VCSID)

	rep, err := patch.Apply(img, meta, patch.Options{
		Layout: layout,
		Target: targetCRC,
		Force:  force,
	})
	if err != nil {
		return err
	}

	log.Debugf("saving %q...", target)
	w := writer.FileWriter{Path: target}
	if err := w.WriteImage(img.File()); err != nil {
		return err
	}

	if jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	}
	log.WithFields(log.Fields{
		"image_crc":  fmt.Sprintf("0x%08X", rep.ImageCRC),
		"image_size": rep.ImageSize,
		"target":     target,
	}).Info("image patched")
	return nil
}

// loadImage picks the loader: --raw and the well-known flat-binary
// extensions force raw mode, anything else must carry the ELF magic.
func loadImage(path string, data []byte) (*image.Image, error) {
	raw := rawFile
	for _, ext := range rawExtensions {
		if strings.HasSuffix(path, ext) {
			raw = true
		}
	}
	if raw {
		return image.LoadRaw(data), nil
	}
	if !image.IsELF(data) {
		return nil, fmt.Errorf("%s is not an ELF file (use --raw to patch flat binaries)", path)
	}
	return image.LoadELF(data)
}

func parseCRC(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid CRC value %q: %w", s, err)
	}
	return uint32(v), nil
}
