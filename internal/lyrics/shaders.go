package lyrics

import (
	"fmt"
	"strings"

	"github.com/go-gl/gl/v3.3-core/gl"
)

// lyricVertexShader positions one glyph quad: the line uniform's Y and scale
// are applied about the line's own anchor, then the per-character emphasis
// wave offsets X before the viewport transform. Timing attributes pass
// through untouched for the fragment stage.
const lyricVertexShader = `#version 330 core

layout(location = 0) in vec2 aPos;
layout(location = 1) in vec2 aSize;
layout(location = 2) in vec2 aUVMin;
layout(location = 3) in vec2 aUVMax;
layout(location = 4) in vec2 aWordTime;
layout(location = 5) in vec2 aGlyphInWord;
layout(location = 6) in uvec2 aLineFlags;
layout(location = 7) in uint aColor;
layout(location = 8) in float aEmphasisProgress;
layout(location = 9) in vec2 aCorner;
layout(location = 10) in vec2 aCharInfo;
layout(location = 11) in vec2 aCharTiming;
layout(location = 12) in uint aVisualLineInfo;
layout(location = 13) in float aPosInVisualLine;

uniform vec2 uViewportSize;
uniform float uScrollY;
uniform float uLineY;
uniform float uLineScale;
uniform float uLineHeight;

out vec2 vUV;
out vec2 vWordTime;
out vec2 vGlyphInWord;
out float vCornerX;
flat out uint vFlags;
flat out uint vColor;
out float vEmphasisProgress;
out vec2 vCharInfo;
out vec2 vCharTiming;

void main() {
    float amount = clamp(min(1.2, ((aLineFlags.y & 64u) != 0u ? 1.6 : 1.0) * 0.6 *
        (aCharTiming.y > 2000.0 ? sqrt(aCharTiming.y / 2000.0)
                                : pow(aCharTiming.y / 2000.0, 3.0))), 0.0, 1.2);
    float ease = sin(clamp(aEmphasisProgress, 0.0, 1.0) * 3.14159265);
    float wave = -ease * 0.03 * amount * (aCharInfo.y / 2.0 - aCharInfo.x) * aSize.x;

    vec2 local = aPos + aCorner * aSize;
    local.x += wave;
    local.y = (local.y - uLineHeight * 0.5) * uLineScale + uLineHeight * 0.5;
    local.x *= uLineScale;

    vec2 screen = vec2(local.x, uLineY + local.y - uScrollY);
    vec2 ndc = screen / uViewportSize * 2.0 - 1.0;
    gl_Position = vec4(ndc.x, -ndc.y, 0.0, 1.0);

    vUV = mix(aUVMin, aUVMax, aCorner);
    vWordTime = aWordTime;
    vGlyphInWord = aGlyphInWord;
    vCornerX = aCorner.x;
    vFlags = aLineFlags.y;
    vColor = aColor;
    vEmphasisProgress = aEmphasisProgress;
    vCharInfo = aCharInfo;
    vCharTiming = aCharTiming;
}
`

// lyricFragmentShader samples the SDF atlas and composes coverage, the word
// reveal gradient, brightness, and the emphasis glow. Blur widens the
// smoothstep edge instead of running a separate Gaussian pass; the mask
// keyframes are interpolated per fragment so the reveal boundary matches the
// precomputed per-word advance exactly.
const lyricFragmentShader = `#version 330 core

in vec2 vUV;
in vec2 vWordTime;
in vec2 vGlyphInWord;
in float vCornerX;
flat in uint vFlags;
flat in uint vColor;
in float vEmphasisProgress;
in vec2 vCharInfo;
in vec2 vCharTiming;

uniform sampler2D uAtlas;
uniform float uCurrentTimeMs;
uniform float uWordFadeWidth;
uniform float uLineBlur;
uniform float uLineScale;
uniform float uLineOpacity;
uniform float uLineGlow;
uniform float uLineStartMs;
uniform float uLineFadeDurationMs;
uniform int uMaskCount;
uniform float uMaskTimes[64];
uniform float uMaskPositions[64];

out vec4 fragColor;

float maskPositionAt(float tNorm) {
    if (uMaskCount == 0) return 0.0;
    if (tNorm <= uMaskTimes[0]) return uMaskPositions[0];
    for (int i = 1; i < uMaskCount; i++) {
        if (tNorm <= uMaskTimes[i]) {
            float span = max(uMaskTimes[i] - uMaskTimes[i - 1], 1e-6);
            float f = (tNorm - uMaskTimes[i - 1]) / span;
            return mix(uMaskPositions[i - 1], uMaskPositions[i], f);
        }
    }
    return uMaskPositions[uMaskCount - 1];
}

void main() {
    float sdf = texture(uAtlas, vUV).r;
    float r = fwidth(sdf) * (0.5 + uLineBlur);
    float coverage = smoothstep(0.5 - r, 0.5 + r, sdf);

    float tNorm = clamp((uCurrentTimeMs - uLineStartMs) / max(uLineFadeDurationMs, 1.0), 0.0, 1.0);
    float tWordStart = clamp((vWordTime.x - uLineStartMs) / max(uLineFadeDurationMs, 1.0), 0.0, 1.0);
    float tWordEnd = clamp((vWordTime.y - uLineStartMs) / max(uLineFadeDurationMs, 1.0), 0.0, 1.0);

    float mNow = maskPositionAt(tNorm);
    float mStart = maskPositionAt(tWordStart);
    float mEnd = maskPositionAt(tWordEnd);
    float wordEmWidth = max(mEnd - mStart, 1e-4);
    float reveal = (mNow - mStart) / wordEmWidth;

    float p = vGlyphInWord.x + vCornerX * vGlyphInWord.y;
    float gradient = max(uWordFadeWidth / wordEmWidth, 1e-4);
    float highlight = clamp((reveal - p) / gradient + 0.5, 0.0, 1.0);

    float brightAlpha = clamp((uLineScale - 0.97) / 0.03, 0.0, 1.0) * 0.8 + 0.2;
    float darkAlpha = clamp((uLineScale - 0.97) / 0.03, 0.0, 1.0) * 0.2 + 0.2;
    float alpha = mix(darkAlpha, brightAlpha, highlight);

    vec4 base = vec4(
        float((vColor >> 24u) & 0xFFu) / 255.0,
        float((vColor >> 16u) & 0xFFu) / 255.0,
        float((vColor >> 8u) & 0xFFu) / 255.0,
        float(vColor & 0xFFu) / 255.0);

    vec3 color = base.rgb;
    if (highlight > 0.3 && (vFlags & 1u) != 0u) {
        color += vec3(0.15, 0.15, 0.2) * ((highlight - 0.3) / 0.7) * 0.5;
    }
    color += vec3(uLineGlow) * 0.1;

    fragColor = vec4(color, coverage * alpha * base.a * uLineOpacity);
}
`

// interludeVertexShader stretches a unit quad over the three-dot area.
const interludeVertexShader = `#version 330 core

layout(location = 0) in vec2 aCorner;

uniform vec2 uViewportSize;
uniform vec2 uDotsPosition;
uniform float uDotsScale;
uniform float uDotSize;
uniform float uDotSpacing;

out vec2 vLocal;

void main() {
    float width = (uDotSpacing * 2.0 + uDotSize) * uDotsScale;
    float height = uDotSize * uDotsScale;
    vec2 screen = uDotsPosition + aCorner * vec2(width, height);
    vec2 ndc = screen / uViewportSize * 2.0 - 1.0;
    gl_Position = vec4(ndc.x, -ndc.y, 0.0, 1.0);
    vLocal = aCorner;
}
`

// interludeFragmentShader draws the three breathing dots as smooth discs with
// individually ramped opacities.
const interludeFragmentShader = `#version 330 core

in vec2 vLocal;

uniform float uDotSize;
uniform float uDotSpacing;
uniform float uDotsScale;
uniform vec3 uDotOpacities;
uniform float uDotsEnabled;

out vec4 fragColor;

void main() {
    float width = uDotSpacing * 2.0 + uDotSize;
    float x = vLocal.x * width;
    float y = (vLocal.y - 0.5) * uDotSize;

    float alpha = 0.0;
    for (int i = 0; i < 3; i++) {
        float cx = uDotSpacing * float(i) + uDotSize * 0.5;
        float d = length(vec2(x - cx, y)) / (uDotSize * 0.5);
        float disc = 1.0 - smoothstep(0.85, 1.0, d);
        alpha = max(alpha, disc * uDotOpacities[i]);
    }

    fragColor = vec4(vec3(1.0), alpha * uDotsEnabled);
}
`

// maxMaskKeyframes matches the uniform array length in lyricFragmentShader;
// keyframe lists longer than this are downsampled before upload.
const maxMaskKeyframes = 64

// BrightAlpha maps a line's scale spring position to the highlighted-text
// alpha: 0.2 at the inactive scale knee (0.97), 1.0 at full scale.
func BrightAlpha(scale float64) float64 {
	return clamp01((scale-0.97)/0.03)*0.8 + 0.2
}

// DarkAlpha is BrightAlpha's counterpart for un-revealed text.
func DarkAlpha(scale float64) float64 {
	return clamp01((scale-0.97)/0.03)*0.2 + 0.2
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// MaskPositionAt interpolates a line's mask keyframes at normalized time
// tNorm, the CPU mirror of the fragment shader's maskPositionAt.
func MaskPositionAt(keyframes []MaskKeyframe, tNorm float64) float64 {
	if len(keyframes) == 0 {
		return 0
	}
	if tNorm <= keyframes[0].TimeOffset {
		return keyframes[0].MaskPosition
	}
	for i := 1; i < len(keyframes); i++ {
		if tNorm <= keyframes[i].TimeOffset {
			span := keyframes[i].TimeOffset - keyframes[i-1].TimeOffset
			if span <= 0 {
				return keyframes[i].MaskPosition
			}
			f := (tNorm - keyframes[i-1].TimeOffset) / span
			return keyframes[i-1].MaskPosition + (keyframes[i].MaskPosition-keyframes[i-1].MaskPosition)*f
		}
	}
	return keyframes[len(keyframes)-1].MaskPosition
}

// Program wraps a linked GL shader program with cached uniform locations.
type Program struct {
	handle   uint32
	uniforms map[string]int32
}

// NewProgram compiles and links a vertex/fragment pair. Must be called on the
// GL context's owning thread.
func NewProgram(vertexSrc, fragmentSrc string) (*Program, error) {
	vs, err := compileShader(gl.VERTEX_SHADER, vertexSrc)
	if err != nil {
		return nil, err
	}
	fs, err := compileShader(gl.FRAGMENT_SHADER, fragmentSrc)
	if err != nil {
		gl.DeleteShader(vs)
		return nil, err
	}

	handle := gl.CreateProgram()
	gl.AttachShader(handle, vs)
	gl.AttachShader(handle, fs)
	gl.LinkProgram(handle)
	gl.DeleteShader(vs)
	gl.DeleteShader(fs)

	var status int32
	gl.GetProgramiv(handle, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLen int32
		gl.GetProgramiv(handle, gl.INFO_LOG_LENGTH, &logLen)
		log := strings.Repeat("\x00", int(logLen)+1)
		gl.GetProgramInfoLog(handle, logLen, nil, gl.Str(log))
		gl.DeleteProgram(handle)
		return nil, fmt.Errorf("lyrics: shader link failed: %s", strings.TrimRight(log, "\x00"))
	}

	return &Program{handle: handle, uniforms: make(map[string]int32)}, nil
}

func compileShader(kind uint32, src string) (uint32, error) {
	shader := gl.CreateShader(kind)
	csrc, free := gl.Strs(src + "\x00")
	gl.ShaderSource(shader, 1, csrc, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLen int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLen)
		log := strings.Repeat("\x00", int(logLen)+1)
		gl.GetShaderInfoLog(shader, logLen, nil, gl.Str(log))
		gl.DeleteShader(shader)
		return 0, fmt.Errorf("lyrics: shader compile failed: %s", strings.TrimRight(log, "\x00"))
	}
	return shader, nil
}

// Use binds the program for subsequent draw calls.
func (p *Program) Use() { gl.UseProgram(p.handle) }

// Close releases the GL program.
func (p *Program) Close() { gl.DeleteProgram(p.handle) }

func (p *Program) uniform(name string) int32 {
	if loc, ok := p.uniforms[name]; ok {
		return loc
	}
	loc := gl.GetUniformLocation(p.handle, gl.Str(name+"\x00"))
	p.uniforms[name] = loc
	return loc
}

// SetFloat/SetInt/SetVec2/SetVec3/SetFloats set the named uniform on the
// currently bound program.
func (p *Program) SetFloat(name string, v float32)    { gl.Uniform1f(p.uniform(name), v) }
func (p *Program) SetInt(name string, v int32)        { gl.Uniform1i(p.uniform(name), v) }
func (p *Program) SetVec2(name string, x, y float32)  { gl.Uniform2f(p.uniform(name), x, y) }
func (p *Program) SetVec3(name string, x, y, z float32) {
	gl.Uniform3f(p.uniform(name), x, y, z)
}
func (p *Program) SetFloats(name string, vals []float32) {
	if len(vals) == 0 {
		return
	}
	gl.Uniform1fv(p.uniform(name), int32(len(vals)), &vals[0])
}
