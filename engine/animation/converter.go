package animation

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/Carmen-Shannon/oxy-gltf/common"
	"github.com/Carmen-Shannon/oxy-gltf/engine/gltf"
	"github.com/Carmen-Shannon/oxy-gltf/engine/mesh"
	"github.com/Carmen-Shannon/oxy-gltf/engine/scene"
)

// DefaultClipName names the merged clip when no model name is configured.
const DefaultClipName = "GLTFAnimation"

var (
	translationProps = []string{"localPosition.x", "localPosition.y", "localPosition.z"}
	rotationProps    = []string{"localRotation.x", "localRotation.y", "localRotation.z", "localRotation.w"}
	scaleProps       = []string{"localScale.x", "localScale.y", "localScale.z"}
)

// converter is the implementation of the Converter interface.
type converter struct {
	doc        *gltf.Document
	buffers    gltf.BufferLookup
	nodes      scene.NodeLookup
	policy     ClipPolicy
	modelName  string
	handedness common.Handedness
	logger     *slog.Logger

	merged *Clip
	clips  []*Clip
}

// Converter turns glTF animations into clips of per-component curves.
type Converter interface {
	// Convert converts one animation. Channels that cannot be bound are logged and skipped.
	//
	// Parameters:
	//   - index: the animation index
	//
	// Returns:
	//   - *Clip: the clip the curves were added to
	//   - error: ErrMalformedAccessor (wrapped) if a sampler accessor cannot be decoded
	Convert(index int) (*Clip, error)

	// Clips returns the clips produced so far, in creation order.
	//
	// Returns:
	//   - []*Clip: the clips
	Clips() []*Clip
}

var _ Converter = &converter{}

// ConverterBuilderOption is a functional option for configuring a Converter.
type ConverterBuilderOption func(*converter)

// WithClipPolicy sets how animations map onto clips.
//
// Parameters:
//   - policy: ClipMerged or ClipPerAnimation
//
// Returns:
//   - ConverterBuilderOption: option function to set the policy
func WithClipPolicy(policy ClipPolicy) ConverterBuilderOption {
	return func(c *converter) {
		c.policy = policy
	}
}

// WithModelName names the merged clip.
func WithModelName(name string) ConverterBuilderOption {
	return func(c *converter) {
		if name != "" {
			c.modelName = name
		}
	}
}

// WithHandedness sets the coordinate convention key values are converted to.
//
// Parameters:
//   - h: the target handedness
//
// Returns:
//   - ConverterBuilderOption: option function to set the handedness
func WithHandedness(h common.Handedness) ConverterBuilderOption {
	return func(c *converter) {
		c.handedness = h
	}
}

// WithLogger sets the logger for skipped channels.
func WithLogger(logger *slog.Logger) ConverterBuilderOption {
	return func(c *converter) {
		c.logger = logger
	}
}

// NewConverter creates a Converter. Curves are bound to instances found through nodes, so the scene
// must be walked first.
//
// Parameters:
//   - doc: the parsed document
//   - buffers: lookup of loaded buffers
//   - nodes: the instances by document node index
//   - options: variadic list of ConverterBuilderOption to configure the converter
//
// Returns:
//   - Converter: the new converter
func NewConverter(doc *gltf.Document, buffers gltf.BufferLookup, nodes scene.NodeLookup, options ...ConverterBuilderOption) Converter {
	c := &converter{
		doc:        doc,
		buffers:    buffers,
		nodes:      nodes,
		policy:     ClipMerged,
		modelName:  DefaultClipName,
		handedness: common.RightHanded,
		logger:     slog.Default(),
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

func (c *converter) Clips() []*Clip {
	return c.clips
}

func (c *converter) Convert(index int) (*Clip, error) {
	if !common.InRange(index, len(c.doc.Animations)) {
		return nil, fmt.Errorf("animation %d out of range", index)
	}
	anim := &c.doc.Animations[index]
	clip := c.clipFor(anim, index)

	for i := range anim.Channels {
		curves, err := c.channel(anim, index, i)
		if err != nil {
			return nil, fmt.Errorf("animation %d channel %d: %w", index, i, err)
		}
		for _, curve := range curves {
			clip.set(curve)
		}
	}
	return clip, nil
}

// clipFor returns the clip an animation's curves go into, creating it on first use.
func (c *converter) clipFor(anim *gltf.Animation, index int) *Clip {
	if c.policy == ClipMerged {
		if c.merged == nil {
			c.merged = &Clip{Name: c.modelName, WrapMode: WrapLoop}
			c.clips = append(c.clips, c.merged)
		}
		return c.merged
	}

	name := common.CleanName(anim.Name)
	if name == "" {
		name = fmt.Sprintf("GLTFAnimation_%d", index)
	}
	clip := &Clip{Name: name, WrapMode: WrapLoop}
	c.clips = append(c.clips, clip)
	return clip
}

// set adds a curve, replacing an earlier curve for the same node property.
func (clip *Clip) set(curve *Curve) {
	for i, existing := range clip.Curves {
		if existing.Path == curve.Path && existing.Property == curve.Property {
			clip.Curves[i] = curve
			return
		}
	}
	clip.Curves = append(clip.Curves, curve)
}

// channel converts one channel into curves. A nil result with a nil error means the channel was skipped.
func (c *converter) channel(anim *gltf.Animation, animIndex, chIndex int) ([]*Curve, error) {
	ch := &anim.Channels[chIndex]
	log := c.logger.With("animation", animIndex, "channel", chIndex)

	if !common.InRange(ch.Sampler, len(anim.Samplers)) {
		log.Warn("skipping channel with invalid sampler", "sampler", ch.Sampler)
		return nil, nil
	}
	if ch.Target.Node == nil {
		log.Warn("skipping channel without target node")
		return nil, nil
	}
	nodeIndex := *ch.Target.Node
	node, ok := c.nodes.Get(nodeIndex)
	if !ok {
		log.Warn("skipping channel targeting a node that was not instantiated", "node", nodeIndex)
		return nil, nil
	}

	var props []string
	accType := gltf.AccessorTypeVec3
	switch ch.Target.Path {
	case gltf.PathTranslation:
		props = translationProps
	case gltf.PathRotation:
		props, accType = rotationProps, gltf.AccessorTypeVec4
	case gltf.PathScale:
		props = scaleProps
	case gltf.PathWeights:
		props, accType = c.weightProps(nodeIndex), gltf.AccessorTypeScalar
		if len(props) == 0 {
			log.Warn("skipping weights channel on a node without morph targets", "node", nodeIndex)
			return nil, nil
		}
	default:
		log.Warn("skipping channel with unknown path", "path", ch.Target.Path)
		return nil, nil
	}

	sampler := &anim.Samplers[ch.Sampler]
	times, err := c.decode(sampler.Input, gltf.AccessorTypeScalar)
	if err != nil {
		return nil, fmt.Errorf("input: %w", err)
	}
	values, err := c.decode(sampler.Output, accType)
	if err != nil {
		return nil, fmt.Errorf("output: %w", err)
	}

	interp, values := c.interpolation(sampler.Interpolation, values, len(props))
	if len(values) != len(times)*len(props) {
		log.Warn("skipping channel with mismatched key counts", "times", len(times), "values", len(values), "components", len(props))
		return nil, nil
	}

	switch ch.Target.Path {
	case gltf.PathTranslation:
		if c.handedness == common.LeftHanded {
			for k := 2; k < len(values); k += 3 {
				values[k] = -values[k]
			}
		}
	case gltf.PathRotation:
		c.fixRotations(values)
	}

	path := node.Path()
	curves := make([]*Curve, len(props))
	for p, prop := range props {
		curve := &Curve{Path: path, Property: prop, Interpolation: interp, Keys: make([]Key, len(times))}
		for k, t := range times {
			curve.Keys[k] = Key{Time: t, Value: values[k*len(props)+p]}
		}
		sort.SliceStable(curve.Keys, func(i, j int) bool { return curve.Keys[i].Time < curve.Keys[j].Time })
		curves[p] = curve
	}
	return curves, nil
}

func (c *converter) decode(accessor int, accType string) ([]float32, error) {
	acc, err := gltf.NewAttributeAccessor(c.doc, "", accessor, c.buffers)
	if err != nil {
		return nil, err
	}
	return acc.Floats(accType)
}

// interpolation maps the glTF mode onto a curve mode. CUBICSPLINE keeps only the value of each
// (in-tangent, value, out-tangent) triple and is sampled as a step.
func (c *converter) interpolation(mode string, values []float32, components int) (Interpolation, []float32) {
	switch mode {
	case gltf.InterpolationStep:
		return Step, values
	case gltf.InterpolationCubicSpline:
		keys := len(values) / (3 * components)
		out := make([]float32, 0, keys*components)
		for k := range keys {
			base := (3*k + 1) * components
			out = append(out, values[base:base+components]...)
		}
		return Step, out
	default:
		return Linear, values
	}
}

// fixRotations normalizes each key, converts handedness and keeps consecutive keys in the same hemisphere.
func (c *converter) fixRotations(values []float32) {
	var prev [4]float32
	for k := 0; k+3 < len(values); k += 4 {
		q := common.NormalizeQuaternion([4]float32{values[k], values[k+1], values[k+2], values[k+3]})
		if c.handedness == common.LeftHanded {
			q = common.FlipQuaternionZ(q)
		}
		if k > 0 && common.QuaternionDot(prev, q) < 0 {
			q = [4]float32{-q[0], -q[1], -q[2], -q[3]}
		}
		copy(values[k:k+4], q[:])
		prev = q
	}
}

// weightProps names one blendShape property per morph target of the node's mesh, taken from its first primitive.
func (c *converter) weightProps(nodeIndex int) []string {
	gn := &c.doc.Nodes[nodeIndex]
	if gn.Mesh == nil || !common.InRange(*gn.Mesh, len(c.doc.Meshes)) {
		return nil
	}
	gm := &c.doc.Meshes[*gn.Mesh]
	if len(gm.Primitives) == 0 {
		return nil
	}
	var names []string
	if gm.Extras != nil {
		names = gm.Extras.TargetNames
	}
	props := make([]string, len(gm.Primitives[0].Targets))
	for k := range props {
		props[k] = "blendShape." + mesh.TargetName(*gn.Mesh, k, names)
	}
	return props
}
