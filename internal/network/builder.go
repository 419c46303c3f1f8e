package network

import (
	"encoding/json"
	"fmt"
)

// Template is a minimal CloudFormation template document. Resources and
// outputs are maps, so the JSON encoding is key-sorted and therefore
// byte-identical for identical configurations.
type Template struct {
	AWSTemplateFormatVersion string              `json:"AWSTemplateFormatVersion"`
	Description              string              `json:"Description,omitempty"`
	Resources                map[string]Resource `json:"Resources"`
	Outputs                  map[string]Output   `json:"Outputs,omitempty"`
}

// Resource is one CloudFormation resource declaration.
type Resource struct {
	Type       string         `json:"Type"`
	Properties map[string]any `json:"Properties,omitempty"`
	DependsOn  []string       `json:"DependsOn,omitempty"`
}

// Output is one CloudFormation template output.
type Output struct {
	Value any `json:"Value"`
}

// JSON renders the template body.
func (t *Template) JSON() (string, error) {
	body, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode template: %w", err)
	}
	return string(body), nil
}

func ref(name string) map[string]any {
	return map[string]any{"Ref": name}
}

func getAtt(name, attr string) map[string]any {
	return map[string]any{"Fn::GetAtt": []string{name, attr}}
}

// TemplateBuilder produces the network template for a topology
// configuration. Build is a pure function of the configuration: no
// randomness, no network calls.
type TemplateBuilder struct {
	vpc       VPCConfig
	defaultAZ string
}

// NewTemplateBuilder returns a builder. Subnets without an explicit
// availability zone are placed in defaultAZ.
func NewTemplateBuilder(vpc VPCConfig, defaultAZ string) *TemplateBuilder {
	return &TemplateBuilder{vpc: vpc, defaultAZ: defaultAZ}
}

// Build assembles the VPC, subnets, route tables and gateways implied by
// the configuration. Malformed configurations fail here, before anything
// is submitted to the provider.
func (b *TemplateBuilder) Build() (*Template, error) {
	if err := b.vpc.validate(); err != nil {
		return nil, err
	}

	name := b.vpc.Name
	if name == "" {
		name = "stackbench"
	}

	t := &Template{
		AWSTemplateFormatVersion: "2010-09-09",
		Description:              "Network topology for integration test stacks",
		Resources:                make(map[string]Resource),
		Outputs:                  make(map[string]Output),
	}

	t.Resources["Vpc"] = Resource{
		Type: "AWS::EC2::VPC",
		Properties: map[string]any{
			"CidrBlock":          b.vpc.CIDR,
			"EnableDnsSupport":   true,
			"EnableDnsHostnames": true,
			"Tags":               []any{map[string]any{"Key": "Name", "Value": name}},
		},
	}
	t.Outputs["VpcId"] = Output{Value: ref("Vpc")}

	var cidrBlockIDs []string
	for i, cidr := range b.vpc.AdditionalCIDRBlocks {
		id := fmt.Sprintf("VpcCidrBlock%d", i)
		cidrBlockIDs = append(cidrBlockIDs, id)
		t.Resources[id] = Resource{
			Type: "AWS::EC2::VPCCidrBlock",
			Properties: map[string]any{
				"VpcId":     ref("Vpc"),
				"CidrBlock": cidr,
			},
		}
	}

	needInternet := false
	natSubnet := ""
	for _, s := range b.vpc.Subnets {
		if s.DefaultGateway == GatewayInternet || s.MapPublicIPOnLaunch {
			needInternet = true
		}
		if s.HasNATGateway && natSubnet == "" {
			natSubnet = logicalID(s.Name)
		}
	}

	if needInternet {
		t.Resources["InternetGateway"] = Resource{
			Type: "AWS::EC2::InternetGateway",
			Properties: map[string]any{
				"Tags": []any{map[string]any{"Key": "Name", "Value": name}},
			},
		}
		t.Resources["VPCGatewayAttachment"] = Resource{
			Type: "AWS::EC2::VPCGatewayAttachment",
			Properties: map[string]any{
				"VpcId":             ref("Vpc"),
				"InternetGatewayId": ref("InternetGateway"),
			},
		}
	}

	for _, s := range b.vpc.Subnets {
		id := logicalID(s.Name)
		az := s.AvailabilityZone
		if az == "" {
			az = b.defaultAZ
		}

		t.Resources[id+"Subnet"] = Resource{
			Type: "AWS::EC2::Subnet",
			Properties: map[string]any{
				"VpcId":               ref("Vpc"),
				"CidrBlock":           s.CIDR,
				"AvailabilityZone":    az,
				"MapPublicIpOnLaunch": s.MapPublicIPOnLaunch,
				"Tags":                []any{map[string]any{"Key": "Name", "Value": s.Name}},
			},
			// Subnets in an additional range cannot exist before the
			// range is associated with the VPC.
			DependsOn: cidrBlockIDs,
		}
		t.Outputs[id+"SubnetId"] = Output{Value: ref(id + "Subnet")}

		t.Resources[id+"RouteTable"] = Resource{
			Type: "AWS::EC2::RouteTable",
			Properties: map[string]any{
				"VpcId": ref("Vpc"),
			},
		}
		t.Resources[id+"RouteTableAssociation"] = Resource{
			Type: "AWS::EC2::SubnetRouteTableAssociation",
			Properties: map[string]any{
				"SubnetId":     ref(id + "Subnet"),
				"RouteTableId": ref(id + "RouteTable"),
			},
		}

		switch s.DefaultGateway {
		case GatewayInternet:
			t.Resources[id+"DefaultRoute"] = Resource{
				Type: "AWS::EC2::Route",
				Properties: map[string]any{
					"RouteTableId":         ref(id + "RouteTable"),
					"DestinationCidrBlock": "0.0.0.0/0",
					"GatewayId":            ref("InternetGateway"),
				},
				DependsOn: []string{"VPCGatewayAttachment"},
			}
		case GatewayNAT:
			t.Resources[id+"DefaultRoute"] = Resource{
				Type: "AWS::EC2::Route",
				Properties: map[string]any{
					"RouteTableId":         ref(id + "RouteTable"),
					"DestinationCidrBlock": "0.0.0.0/0",
					"NatGatewayId":         ref("NatGateway"),
				},
			}
		}
	}

	if natSubnet != "" {
		t.Resources["NatGatewayEIP"] = Resource{
			Type:       "AWS::EC2::EIP",
			Properties: map[string]any{"Domain": "vpc"},
		}
		t.Resources["NatGateway"] = Resource{
			Type: "AWS::EC2::NatGateway",
			Properties: map[string]any{
				"AllocationId": getAtt("NatGatewayEIP", "AllocationId"),
				"SubnetId":     ref(natSubnet + "Subnet"),
			},
		}
	}

	return t, nil
}
