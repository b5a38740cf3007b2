package glue

import (
	"text/template"

	"github.com/TheCrustyCrab/pure-audio/processor"
)

type templateView struct {
	Descriptor
	Inputs  []Copy
	Outputs []Copy
	Params  []Param
	Skip    string
}

func (g *Glue) view() templateView {
	skip := "no output channels"
	if g.desc.Capability == processor.Effect {
		skip = "no input connected or no output channels"
	}
	return templateView{
		Descriptor: g.desc,
		Inputs:     g.inputs,
		Outputs:    g.outputs,
		Params:     g.params,
		Skip:       skip,
	}
}

var glueTemplate = template.Must(template.New("glue").Parse(`processor {{.Name}} ({{.Capability}})
  shape: inputs={{.Shape.Inputs}} outputs={{.Shape.Outputs}} channels={{.Shape.Channels}} block={{.Shape.BlockSize}}
  parameters:
{{- range .Schema}}
    - {name: {{printf "%q" .Name}}, default: {{.Default}}, min: {{.Min}}, max: {{.Max}}, rate: {{.Rate}}}
{{- else}} none
{{- end}}
  process:
    skip when {{.Skip}}
{{- range .Inputs}}
    copy input {{.Slot}}.{{.Channel}} -> inputs+{{.Offset}} (silence when missing)
{{- end}}
    write parameters [{{range $i, $p := .Params}}{{if $i}}, {{end}}{{$p.Name}}[0] or {{$p.Default}}{{end}}] -> parameters+0
    advance
{{- range .Outputs}}
    copy outputs+{{.Offset}} -> output {{.Slot}}.{{.Channel}}
{{- end}}
`))
