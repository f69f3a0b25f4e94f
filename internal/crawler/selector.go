package crawler

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/modkeeper/modkeeper/internal/model"
)

// ConsoleAssetSelector asks the user to pick an asset by number on the
// terminal. It is the default interactive selector for the CLI.
type ConsoleAssetSelector struct {
	In  io.Reader
	Out io.Writer
}

// SelectAsset prints the candidates and reads a 1-based choice. An
// empty or invalid answer selects nothing.
func (s *ConsoleAssetSelector) SelectAsset(modName string, assets []model.Asset) *model.Asset {
	fmt.Fprintf(s.Out, "Multiple downloads available for %s:\n", modName)
	for i, asset := range assets {
		fmt.Fprintf(s.Out, "  %d) %s\n", i+1, asset.FileName)
	}
	fmt.Fprint(s.Out, "Which one should be used? ")

	line, err := bufio.NewReader(s.In).ReadString('\n')
	if err != nil && line == "" {
		return nil
	}

	choice, err := strconv.Atoi(strings.TrimSpace(line))
	if err != nil || choice < 1 || choice > len(assets) {
		return nil
	}
	return &assets[choice-1]
}

// FirstAssetSelector always picks the first candidate. Useful for
// non-interactive batch runs.
type FirstAssetSelector struct{}

func (FirstAssetSelector) SelectAsset(modName string, assets []model.Asset) *model.Asset {
	if len(assets) == 0 {
		return nil
	}
	return &assets[0]
}
