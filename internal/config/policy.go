package config

import (
	"bufio"
	"fmt"
	"net/netip"
	"os"
	"regexp"
	"strings"

	"github.com/LaCapitainerie/openvasreporting/internal/severity"
)

// Policy is the compiled record-inclusion policy the extractor applies. A
// record passes only when its severity level is included and it clears every
// configured network, name-regex and CVE filter. A nil filter slice/map
// means "no constraint".
type Policy struct {
	Included severity.Set

	networksInclude []netip.Prefix
	networksExclude []netip.Prefix
	regexInclude    []*regexp.Regexp
	regexExclude    []*regexp.Regexp
	cveInclude      map[string]bool
	cveExclude      map[string]bool
}

// Policy compiles the filter configuration into a Policy, loading any
// referenced filter files. File problems are configuration errors and fail
// the batch before parsing starts.
func (c *Config) Policy() (*Policy, error) {
	included, err := parseLevelSet(c.Filter.MinLevel, c.Filter.ExcludeLevels)
	if err != nil {
		return nil, err
	}

	p := &Policy{Included: included}

	if p.networksInclude, err = loadNetworkFile(c.Filter.NetworksIncludeFile); err != nil {
		return nil, err
	}
	if p.networksExclude, err = loadNetworkFile(c.Filter.NetworksExcludeFile); err != nil {
		return nil, err
	}
	if p.regexInclude, err = loadRegexFile(c.Filter.RegexIncludeFile); err != nil {
		return nil, err
	}
	if p.regexExclude, err = loadRegexFile(c.Filter.RegexExcludeFile); err != nil {
		return nil, err
	}
	if p.cveInclude, err = loadCVEFile(c.Filter.CVEIncludeFile); err != nil {
		return nil, err
	}
	if p.cveExclude, err = loadCVEFile(c.Filter.CVEExcludeFile); err != nil {
		return nil, err
	}

	return p, nil
}

// parseLevelSet resolves the included band set: everything at or above the
// minimum level, minus explicit exclusions.
func parseLevelSet(minLevel, excludeLevels string) (severity.Set, error) {
	if minLevel == "" {
		minLevel = "none"
	}
	min, err := severity.Parse(minLevel)
	if err != nil {
		return nil, fmt.Errorf("filter.min_level: %w", err)
	}

	set := severity.AtLeast(min)
	for _, ch := range strings.TrimSpace(excludeLevels) {
		level, err := severity.Parse(string(ch))
		if err != nil {
			return nil, fmt.Errorf("filter.exclude_levels: %w", err)
		}
		delete(set, level)
	}
	return set, nil
}

// AllowsLevel reports whether the severity band is included.
func (p *Policy) AllowsLevel(l severity.Level) bool {
	return p.Included.Contains(l)
}

// AllowsHost reports whether the host IP clears the network filters.
// Unparseable record IPs only pass when no network filter is configured.
func (p *Policy) AllowsHost(ip string) bool {
	if len(p.networksInclude) == 0 && len(p.networksExclude) == 0 {
		return true
	}
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	for _, prefix := range p.networksExclude {
		if prefix.Contains(addr) {
			return false
		}
	}
	if len(p.networksInclude) == 0 {
		return true
	}
	for _, prefix := range p.networksInclude {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

// AllowsName reports whether the finding name clears the regex filters.
func (p *Policy) AllowsName(name string) bool {
	for _, re := range p.regexExclude {
		if re.MatchString(name) {
			return false
		}
	}
	if len(p.regexInclude) == 0 {
		return true
	}
	for _, re := range p.regexInclude {
		if re.MatchString(name) {
			return true
		}
	}
	return false
}

// AllowsCVEs reports whether the record's CVE list clears the CVE filters.
// With an include list configured, at least one CVE must match; any match
// against the exclude list rejects.
func (p *Policy) AllowsCVEs(cves []string) bool {
	for _, cve := range cves {
		if p.cveExclude[strings.ToUpper(cve)] {
			return false
		}
	}
	if len(p.cveInclude) == 0 {
		return true
	}
	for _, cve := range cves {
		if p.cveInclude[strings.ToUpper(cve)] {
			return true
		}
	}
	return false
}

// IncludedLevels returns the included bands ordered most severe first, for
// renderers to label which bands are present.
func (p *Policy) IncludedLevels() []severity.Level {
	return p.Included.Levels()
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open filter file: %w", err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read filter file %s: %w", path, err)
	}
	return lines, nil
}

// loadNetworkFile reads CIDRs and bare IPs, one per line.
func loadNetworkFile(path string) ([]netip.Prefix, error) {
	if path == "" {
		return nil, nil
	}
	lines, err := readLines(path)
	if err != nil {
		return nil, err
	}
	var prefixes []netip.Prefix
	for _, line := range lines {
		if prefix, err := netip.ParsePrefix(line); err == nil {
			prefixes = append(prefixes, prefix)
			continue
		}
		addr, err := netip.ParseAddr(line)
		if err != nil {
			return nil, fmt.Errorf("%s: %q is neither a CIDR nor an IP address", path, line)
		}
		prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return prefixes, nil
}

func loadRegexFile(path string) ([]*regexp.Regexp, error) {
	if path == "" {
		return nil, nil
	}
	lines, err := readLines(path)
	if err != nil {
		return nil, err
	}
	var res []*regexp.Regexp
	for _, line := range lines {
		re, err := regexp.Compile(line)
		if err != nil {
			return nil, fmt.Errorf("%s: invalid regex %q: %w", path, line, err)
		}
		res = append(res, re)
	}
	return res, nil
}

func loadCVEFile(path string) (map[string]bool, error) {
	if path == "" {
		return nil, nil
	}
	lines, err := readLines(path)
	if err != nil {
		return nil, err
	}
	set := make(map[string]bool, len(lines))
	for _, line := range lines {
		set[strings.ToUpper(line)] = true
	}
	return set, nil
}
