// Package openvas reads OpenVAS/GVM XML scan reports and folds their result
// records into the report model's two aggregate views.
package openvas

import (
	"encoding/xml"
	"strings"
)

// reportXML is the document root. GVM exports wrap the scan data in a nested
// <report> element; older exports carry <results> at the top level. Both
// shapes are accepted.
type reportXML struct {
	XMLName xml.Name    `xml:"report"`
	Results []resultXML `xml:"results>result"`
	Inner   *innerXML   `xml:"report"`
}

type innerXML struct {
	Results []resultXML `xml:"results>result"`
}

// results returns the result records regardless of nesting shape.
func (r *reportXML) results() []resultXML {
	if r.Inner != nil && len(r.Inner.Results) > 0 {
		return r.Inner.Results
	}
	return r.Results
}

// resultXML is one raw finding record.
type resultXML struct {
	ID          string  `xml:"id,attr"`
	Name        string  `xml:"name"`
	Host        hostXML `xml:"host"`
	Port        string  `xml:"port"`
	Threat      string  `xml:"threat"`
	Severity    string  `xml:"severity"`
	Description string  `xml:"description"`
	NVT         nvtXML  `xml:"nvt"`
}

// hostXML carries the host IP as character data with an optional nested
// hostname element.
type hostXML struct {
	IP       string `xml:",chardata"`
	Hostname string `xml:"hostname"`
}

func (h hostXML) ip() string {
	return strings.TrimSpace(h.IP)
}

// nvtXML describes the test that produced the result. Newer exports list
// CVEs and URLs under <refs>; legacy exports use comma-separated <cve> and
// <xref> elements.
type nvtXML struct {
	OID      string  `xml:"oid,attr"`
	Name     string  `xml:"name"`
	Family   string  `xml:"family"`
	CVSSBase string  `xml:"cvss_base"`
	Tags     string  `xml:"tags"`
	Refs     refsXML `xml:"refs"`
	CVE      string  `xml:"cve"`
	XRef     string  `xml:"xref"`
}

type refsXML struct {
	Refs []refXML `xml:"ref"`
}

type refXML struct {
	Type string `xml:"type,attr"`
	ID   string `xml:"id,attr"`
}

// cves returns the CVE identifiers from whichever reference shape is
// present, skipping the NOCVE placeholder.
func (n nvtXML) cves() []string {
	var out []string
	for _, ref := range n.Refs.Refs {
		if strings.EqualFold(ref.Type, "cve") && ref.ID != "" {
			out = append(out, ref.ID)
		}
	}
	if len(out) > 0 {
		return out
	}
	for _, cve := range strings.Split(n.CVE, ",") {
		cve = strings.TrimSpace(cve)
		if cve != "" && !strings.EqualFold(cve, "NOCVE") {
			out = append(out, cve)
		}
	}
	return out
}

// references returns non-CVE reference URLs, skipping the NOXREF
// placeholder.
func (n nvtXML) references() []string {
	var out []string
	for _, ref := range n.Refs.Refs {
		if strings.EqualFold(ref.Type, "url") && ref.ID != "" {
			out = append(out, ref.ID)
		}
	}
	if len(out) > 0 {
		return out
	}
	for _, xref := range strings.Split(n.XRef, ",") {
		xref = strings.TrimSpace(xref)
		xref = strings.TrimPrefix(xref, "URL:")
		if xref != "" && !strings.EqualFold(xref, "NOXREF") {
			out = append(out, xref)
		}
	}
	return out
}

// tagMap splits the nvt tags blob ("key=value|key=value") into a map.
// Values may themselves contain '='; only the first one separates.
func (n nvtXML) tagMap() map[string]string {
	tags := make(map[string]string)
	for _, pair := range strings.Split(n.Tags, "|") {
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		tags[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return tags
}
