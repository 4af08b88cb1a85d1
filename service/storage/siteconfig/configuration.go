// Package siteconfig renders the storage service site configuration files.
package siteconfig

import (
	"encoding/xml"
	"fmt"
	"strconv"
)

// File names emitted into a configuration directory.
const (
	CoreSite = "core-site.xml"
	HDFSSite = "hdfs-site.xml"
	GPFSSite = "gpfs-site.xml"
)

// Property names.
const (
	DefaultFS            = "fs.defaultFS"
	TmpDir               = "hadoop.tmp.dir"
	NameDir              = "dfs.namenode.name.dir"
	DataDir              = "dfs.datanode.data.dir"
	HTTPAddress          = "dfs.namenode.http-address"
	SecondaryHTTPAddress = "dfs.namenode.secondary.http-address"
	Replication          = "dfs.replication"
	MaxTransferThreads   = "dfs.datanode.max.transfer.threads"
)

// Property is a single name/value pair.
type Property struct {
	Name  string `xml:"name"`
	Value string `xml:"value"`
}

// Configuration is a Hadoop style configuration document.
type Configuration struct {
	XMLName    xml.Name   `xml:"configuration"`
	Properties []Property `xml:"property"`
}

// Set adds or replaces a property.
func (c *Configuration) Set(name, value string) {
	for i := range c.Properties {
		if c.Properties[i].Name == name {
			c.Properties[i].Value = value
			return
		}
	}
	c.Properties = append(c.Properties, Property{Name: name, Value: value})
}

// Get returns the value of a property.
func (c *Configuration) Get(name string) (string, bool) {
	for _, property := range c.Properties {
		if property.Name == name {
			return property.Value, true
		}
	}
	return "", false
}

// Marshal renders the document with an XML declaration.
func (c *Configuration) Marshal() ([]byte, error) {
	body, err := xml.MarshalIndent(c, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), append(body, '\n')...), nil
}

// Unmarshal parses a configuration document.
func Unmarshal(data []byte) (*Configuration, error) {
	ret := &Configuration{}
	if err := xml.Unmarshal(data, ret); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return ret, nil
}

// Site holds the values every configuration directory carries.
type Site struct {
	// DefaultFS is the storage URI, e.g. hdfs://node1:8020.
	DefaultFS            string
	NameDir              string
	DataDir              string
	HTTPAddress          string
	SecondaryHTTPAddress string
	TmpDir               string
	MaxTransferThreads   int
}

// Validate checks required fields.
func (s Site) Validate() error {
	if s.DefaultFS == "" {
		return fmt.Errorf("default filesystem is required")
	}
	if s.HTTPAddress == "" {
		return fmt.Errorf("http address is required")
	}
	return nil
}

// Documents returns the configuration documents keyed by file name.
// Replication is always 1.
func (s Site) Documents() map[string]*Configuration {
	core := &Configuration{}
	core.Set(DefaultFS, s.DefaultFS)
	if s.TmpDir != "" {
		core.Set(TmpDir, s.TmpDir)
	}

	hdfs := &Configuration{}
	if s.NameDir != "" {
		hdfs.Set(NameDir, s.NameDir)
	}
	if s.DataDir != "" {
		hdfs.Set(DataDir, s.DataDir)
	}
	hdfs.Set(HTTPAddress, s.HTTPAddress)
	if s.SecondaryHTTPAddress != "" {
		hdfs.Set(SecondaryHTTPAddress, s.SecondaryHTTPAddress)
	}
	hdfs.Set(Replication, "1")
	if s.MaxTransferThreads > 0 {
		hdfs.Set(MaxTransferThreads, strconv.Itoa(s.MaxTransferThreads))
	}
	return map[string]*Configuration{
		CoreSite: core,
		HDFSSite: hdfs,
		GPFSSite: {},
	}
}
