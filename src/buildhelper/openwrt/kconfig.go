package openwrt

import (
	"fmt"
	"os"
	"regexp"
	"strings"
)

// DisabledImageFormats is the fixed denylist of image formats the Image
// Builder packaging stage turns off: the Image Builder re-generates images
// itself, so generating them during the package build only burns CI time.
// SQUASHFS stays listed on purpose; the stock AX3600 images are assembled
// by the Image Builder afterwards.
var DisabledImageFormats = []string{
	"ISO", "VDI", "VMDK", "VHDX", "TARGZ", "CPIOGZ", "EXT4FS", "SQUASHFS", "GZIP",
}

// The three line shapes that select image formats in a .config.
var imageFormatRes = []*regexp.Regexp{
	regexp.MustCompile(`^CONFIG_([^_=]+)_IMAGES=y$`),
	regexp.MustCompile(`^CONFIG_TARGET_ROOTFS_([^_=]+)=y$`),
	regexp.MustCompile(`^CONFIG_TARGET_IMAGES_([^_=]+)=y$`),
}

// RewriteDisableImages rewrites a .config so the denylisted image formats
// are no longer built, and appends the two lines that turn the tree into a
// standalone Image Builder producer. Lines not selecting a denylisted
// format pass through byte-identical; lines already =n are never touched.
func RewriteDisableImages(config string, denylist []string) string {
	denied := make(map[string]bool, len(denylist))
	for _, name := range denylist {
		denied[name] = true
	}

	var out strings.Builder
	for _, line := range strings.Split(strings.TrimSuffix(config, "\n"), "\n") {
		if name, ok := matchImageFormat(line); ok && denied[name] {
			out.WriteString(strings.Replace(line, "=y", "=n", 1))
		} else {
			out.WriteString(line)
		}
		out.WriteString("\n")
	}

	out.WriteString("CONFIG_IB=y\n")
	out.WriteString("CONFIG_IB_STANDALONE=y\n")
	return out.String()
}

// matchImageFormat reports the format name selected by an image-format
// config line, if the line is one.
func matchImageFormat(line string) (string, bool) {
	for _, re := range imageFormatRes {
		if m := re.FindStringSubmatch(line); m != nil {
			return m[1], true
		}
	}
	return "", false
}

var (
	allKmodsRe      = regexp.MustCompile(`^(?:CONFIG_ALL_KMODS=[ymn]|# CONFIG_ALL_KMODS is not set)$`)
	allPackagesRe   = regexp.MustCompile(`^CONFIG_ALL=y$`)
	allNonsharedRe  = regexp.MustCompile(`^CONFIG_ALL_NONSHARED=y$`)
	kmodPackageLine = regexp.MustCompile(`^CONFIG_PACKAGE_kmod-([^=]+)=[ym]$`)
)

// RewriteEnableKmods rewrites a .config so every kernel module package is
// built, minus the excluded ones. With onlyKmods the blanket package
// selections are dropped too, leaving kmods as the only forced additions
// (the Image Builder packaging stage wants exactly that).
func RewriteEnableKmods(config string, exclude []string, onlyKmods bool) string {
	excluded := make(map[string]bool, len(exclude))
	for _, name := range exclude {
		excluded[strings.TrimPrefix(name, "kmod-")] = true
	}

	sawAllKmods := false
	var out strings.Builder
	for _, line := range strings.Split(strings.TrimSuffix(config, "\n"), "\n") {
		switch {
		case allKmodsRe.MatchString(line):
			sawAllKmods = true
			out.WriteString("CONFIG_ALL_KMODS=y")

		case onlyKmods && allPackagesRe.MatchString(line):
			out.WriteString("CONFIG_ALL=n")

		case onlyKmods && allNonsharedRe.MatchString(line):
			out.WriteString("CONFIG_ALL_NONSHARED=n")

		default:
			if m := kmodPackageLine.FindStringSubmatch(line); m != nil && excluded[m[1]] {
				out.WriteString(fmt.Sprintf("# CONFIG_PACKAGE_kmod-%s is not set", m[1]))
				break
			}
			out.WriteString(line)
		}
		out.WriteString("\n")
	}

	if !sawAllKmods {
		out.WriteString("CONFIG_ALL_KMODS=y\n")
	}
	return out.String()
}

// EnableAllKmods applies RewriteEnableKmods to the tree's .config.
func (t *Tree) EnableAllKmods(exclude []string, onlyKmods bool) error {
	return t.rewriteConfig(func(config string) string {
		return RewriteEnableKmods(config, exclude, onlyKmods)
	})
}

// DisableImageFormats applies RewriteDisableImages to the tree's .config
// with the fixed denylist.
func (t *Tree) DisableImageFormats() error {
	return t.rewriteConfig(func(config string) string {
		return RewriteDisableImages(config, DisabledImageFormats)
	})
}

// rewriteConfig reads, transforms, and rewrites the tree's .config.
func (t *Tree) rewriteConfig(transform func(string) string) error {
	data, err := os.ReadFile(t.ConfigPath())
	if err != nil {
		return fmt.Errorf("failed to read .config: %w", err)
	}

	if err := os.WriteFile(t.ConfigPath(), []byte(transform(string(data))), 0644); err != nil {
		return fmt.Errorf("failed to write .config: %w", err)
	}
	return nil
}
