// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package ledger

import (
	"sort"
)

// FeatureType is the type byte of an output feature.
type FeatureType byte

const (
	// FeatureSender proves the sender of an output.
	FeatureSender FeatureType = 0

	// FeatureIssuer proves the issuer of an alias or NFT.
	FeatureIssuer FeatureType = 1

	// FeatureMetadata carries arbitrary binary data.
	FeatureMetadata FeatureType = 2

	// FeatureTag carries an indexable tag.
	FeatureTag FeatureType = 3
)

const (
	// MaxMetadataLength is the maximum size of a metadata feature.
	MaxMetadataLength = 8192

	// MaxTagLength is the maximum size of a tag feature.
	MaxTagLength = 64
)

// Feature is an optional property of an output.
type Feature interface {
	Type() FeatureType
	serialize(w *writer)
}

// SenderFeature names the sender of an output.  The address has to be
// unlocked by the transaction creating the output.
type SenderFeature struct {
	Address Address
}

// Type returns FeatureSender.
func (f *SenderFeature) Type() FeatureType { return FeatureSender }

func (f *SenderFeature) serialize(w *writer) {
	w.u8(byte(f.Type()))
	writeAddress(w, f.Address)
}

// IssuerFeature names the issuer of an alias or NFT.
type IssuerFeature struct {
	Address Address
}

// Type returns FeatureIssuer.
func (f *IssuerFeature) Type() FeatureType { return FeatureIssuer }

func (f *IssuerFeature) serialize(w *writer) {
	w.u8(byte(f.Type()))
	writeAddress(w, f.Address)
}

// MetadataFeature carries arbitrary data.
type MetadataFeature struct {
	Data []byte
}

// Type returns FeatureMetadata.
func (f *MetadataFeature) Type() FeatureType { return FeatureMetadata }

func (f *MetadataFeature) serialize(w *writer) {
	w.u8(byte(f.Type()))
	w.prefixed16(f.Data)
}

// TagFeature carries a tag the node indexes outputs by.
type TagFeature struct {
	Tag []byte
}

// Type returns FeatureTag.
func (f *TagFeature) Type() FeatureType { return FeatureTag }

func (f *TagFeature) serialize(w *writer) {
	w.u8(byte(f.Type()))
	w.prefixed8(f.Tag)
}

// Features is the set of features of an output.
type Features []Feature

func (f Features) find(t FeatureType) Feature {
	for _, feat := range f {
		if feat.Type() == t {
			return feat
		}
	}
	return nil
}

// Sender returns the sender feature or nil.
func (f Features) Sender() *SenderFeature {
	feat, _ := f.find(FeatureSender).(*SenderFeature)
	return feat
}

// Issuer returns the issuer feature or nil.
func (f Features) Issuer() *IssuerFeature {
	feat, _ := f.find(FeatureIssuer).(*IssuerFeature)
	return feat
}

// Metadata returns the metadata feature or nil.
func (f Features) Metadata() *MetadataFeature {
	feat, _ := f.find(FeatureMetadata).(*MetadataFeature)
	return feat
}

// Tag returns the tag feature or nil.
func (f Features) Tag() *TagFeature {
	feat, _ := f.find(FeatureTag).(*TagFeature)
	return feat
}

// Without returns a copy of the set with all features of the given types
// removed.
func (f Features) Without(types ...FeatureType) Features {
	out := make(Features, 0, len(f))
next:
	for _, feat := range f {
		for _, t := range types {
			if feat.Type() == t {
				continue next
			}
		}
		out = append(out, feat)
	}

	return out
}

// Upsert returns a copy of the set where feat replaces any feature of the
// same type.
func (f Features) Upsert(feat Feature) Features {
	return append(f.Without(feat.Type()), feat)
}

func (f Features) sorted() Features {
	s := make(Features, len(f))
	copy(s, f)
	sort.SliceStable(s, func(i, j int) bool {
		return s[i].Type() < s[j].Type()
	})

	return s
}

func (f Features) serialize(w *writer) {
	s := f.sorted()
	w.u8(uint8(len(s)))
	for _, feat := range s {
		feat.serialize(w)
	}
}

func readFeatures(r *reader) Features {
	n := int(r.u8())
	feats := make(Features, 0, n)
	for i := 0; i < n && r.err == nil; i++ {
		t := FeatureType(r.u8())
		switch t {
		case FeatureSender:
			feats = append(feats, &SenderFeature{Address: readAddress(r)})
		case FeatureIssuer:
			feats = append(feats, &IssuerFeature{Address: readAddress(r)})
		case FeatureMetadata:
			feats = append(feats, &MetadataFeature{Data: r.prefixed16()})
		case FeatureTag:
			feats = append(feats, &TagFeature{Tag: r.prefixed8()})
		default:
			r.fail("unknown feature type %d", t)
		}
	}

	return feats
}
