package geosite

import (
	"fmt"
	"strings"

	"google.golang.org/protobuf/encoding/protowire"
)

// Field numbers of the v2ray routercommon GeoSiteList schema.
const (
	fieldSiteListEntry = 1

	fieldSiteCode   = 1
	fieldSiteDomain = 2

	fieldDomainType  = 1
	fieldDomainValue = 2
	fieldDomainAttr  = 3

	fieldAttrKey  = 1
	fieldAttrBool = 2
)

type field struct {
	num    protowire.Number
	typ    protowire.Type
	varint uint64
	bytes  []byte
}

func (f field) expect(typ protowire.Type, what string) error {
	if f.typ != typ {
		return fmt.Errorf("unexpected wire type %d for %s", f.typ, what)
	}
	return nil
}

// eachField decodes the top level fields of a message, skipping groups and
// fixed width values.
func eachField(data []byte, fn func(f field) error) error {
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return protowire.ParseError(n)
		}
		data = data[n:]
		f := field{num: num, typ: typ}
		switch typ {
		case protowire.VarintType:
			f.varint, n = protowire.ConsumeVarint(data)
		case protowire.BytesType:
			f.bytes, n = protowire.ConsumeBytes(data)
		default:
			n = protowire.ConsumeFieldValue(num, typ, data)
		}
		if n < 0 {
			return protowire.ParseError(n)
		}
		data = data[n:]
		if err := fn(f); err != nil {
			return err
		}
	}
	return nil
}

func parseGeoSiteList(data []byte) (map[string][]geoDomain, error) {
	result := make(map[string][]geoDomain)
	err := eachField(data, func(f field) error {
		if f.num != fieldSiteListEntry || f.typ != protowire.BytesType {
			return nil
		}
		site, err := parseGeoSite(f.bytes)
		if err != nil {
			return err
		}
		if site.name != "" {
			result[site.name] = append(result[site.name], site.domains...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

type geoSite struct {
	name    string
	domains []geoDomain
}

func parseGeoSite(data []byte) (*geoSite, error) {
	site := &geoSite{}
	err := eachField(data, func(f field) error {
		switch f.num {
		case fieldSiteCode:
			if err := f.expect(protowire.BytesType, "GeoSite.country_code"); err != nil {
				return err
			}
			site.name = strings.ToLower(strings.TrimSpace(string(f.bytes)))
		case fieldSiteDomain:
			if err := f.expect(protowire.BytesType, "GeoSite.domain"); err != nil {
				return err
			}
			domain, err := parseGeoDomain(f.bytes)
			if err != nil {
				return err
			}
			site.domains = append(site.domains, domain)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return site, nil
}

func parseGeoDomain(data []byte) (geoDomain, error) {
	result := geoDomain{}
	err := eachField(data, func(f field) error {
		switch f.num {
		case fieldDomainType:
			if err := f.expect(protowire.VarintType, "Domain.type"); err != nil {
				return err
			}
			result.typ = domainType(f.varint)
		case fieldDomainValue:
			if err := f.expect(protowire.BytesType, "Domain.value"); err != nil {
				return err
			}
			result.value = strings.TrimSpace(string(f.bytes))
		case fieldDomainAttr:
			if err := f.expect(protowire.BytesType, "Domain.attribute"); err != nil {
				return err
			}
			key, err := parseAttributeKey(f.bytes)
			if err != nil {
				return err
			}
			if key == "" {
				return nil
			}
			if result.attrs == nil {
				result.attrs = make(map[string]struct{})
			}
			result.attrs[key] = struct{}{}
		}
		return nil
	})
	if err != nil {
		return geoDomain{}, err
	}
	if result.value == "" {
		return geoDomain{}, fmt.Errorf("empty domain value")
	}
	return result, nil
}

// parseAttributeKey returns the attribute key. Tagging is by presence, the
// typed value of an attribute is not consulted.
func parseAttributeKey(data []byte) (string, error) {
	key := ""
	err := eachField(data, func(f field) error {
		if f.num != fieldAttrKey {
			return nil
		}
		if err := f.expect(protowire.BytesType, "Attribute.key"); err != nil {
			return err
		}
		key = strings.ToLower(strings.TrimSpace(string(f.bytes)))
		return nil
	})
	return key, err
}
