package combine

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"zastat/internal/category"
	"zastat/internal/masspoint"
	"zastat/internal/paths"
)

// Layout places datacards in the output tree:
// <output>/<method group>/<mode>/<1POIs_r|2POIs_r>[/tanbeta_<tb>]/<mass dir>.
type Layout struct {
	Output  string
	Mode    category.Mode
	Method  Method
	TwoPOIs bool
	TanBeta string
}

// Root is the directory holding one sub-directory per mass point.
func (l Layout) Root() string {
	return paths.CardsDir(l.Output, l.Method.Group(), string(l.Mode), l.TwoPOIs, l.TanBeta)
}

// PointDir is the directory of one mass point.
func (l Layout) PointDir(thdm string, p masspoint.MassPoint) string {
	return filepath.Join(l.Root(), p.DirName(thdm))
}

// LeafCard is the file name of a per-flavour leaf datacard.
func LeafCard(thdm string, prod category.Production, btag category.BTag, reg category.Region, flavor category.Flavor, label string) string {
	return fmt.Sprintf("%sTo2L2B_%s_%s_%s_%s_%s.dat", thdm, prod, btag, reg, flavor, label)
}

// LeafChannel is the channel of a leaf card, numbered by its position in
// the flavour group.
func LeafChannel(i int, mode category.Mode, signals []string, btag category.BTag, reg category.Region, flavor category.Flavor) string {
	return fmt.Sprintf("ch%d_%s_%s_%s_%s_%s", i, mode, strings.Join(signals, "_"), btag, reg, flavor)
}

// DriverScriptName returns run_combined_<mode>_<method><suffix>.sh, or
// ..._onSlurm.sh when jobs go to the batch system.
func DriverScriptName(mode category.Mode, method Method, slurm bool) string {
	name := fmt.Sprintf("run_combined_%s_%s%s", mode, method, method.DriverSuffix())
	if slurm {
		return name + "_onSlurm.sh"
	}
	return name + ".sh"
}

// WriteDriverScript writes into dir a script that runs every generated
// <prefix>_run_<method>.sh under the layout root. For full Run 2 the output
// tree is linked into each job directory; with slurm the jobs are submitted
// instead of sourced.
func WriteDriverScript(dir string, l Layout, era string, slurm bool) (string, error) {
	output, err := filepath.Abs(l.Output)
	if err != nil {
		return "", err
	}
	data := struct {
		Root    string
		Output  string
		Method  Method
		Symlink bool
		Slurm   bool
	}{
		Root:    l.Root(),
		Output:  output,
		Method:  l.Method,
		Symlink: era == "fullrun2" && l.Method != GenerateToys,
		Slurm:   slurm,
	}

	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, "driver.sh.tmpl", data); err != nil {
		return "", fmt.Errorf("render driver script: %w", err)
	}
	return writeFile(dir, DriverScriptName(l.Mode, l.Method, slurm), buf.Bytes(), 0755)
}
