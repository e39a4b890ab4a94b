package shader

// WGSL struct source for every bindable resource type the pre-processor's
// @oxy:include/@oxy:group annotations can name. These used to live as
// go:embed'd .wgsl assets next to each GPU-facing Go type (engine/camera,
// engine/light, engine/model, engine/renderer/material,
// engine/renderer/animator); that split let a struct's WGSL mirror its Go
// layout comment in the same package. Those packages were dropped as dead
// weight (nothing outside engine/ called them — see DESIGN.md), so their
// WGSL declarations are inlined here instead, next to the one real caller
// (preProcessor.structRegistry). CameraUniform holds raster.CameraState's
// View and Proj plus its Eye as camPos; Light holds renderbase.Light's
// fields except InputColor and ShadowColor; InstanceData follows
// shaderparam.InstanceAttributeLocations.
const (
	gpuCameraUniformSource = `struct CameraUniform {
    view: mat4x4<f32>,
    proj: mat4x4<f32>,
    camPos: vec3<f32>,
};`

	gpuVertexSource = `struct VertexInput {
    position: vec3<f32>,
    normal: vec3<f32>,
    texcoord: vec2<f32>,
    color: vec4<f32>,
    tangent: vec4<f32>,
};`

	gpuSkinnedVertexSource = `struct VertexInput {
    position: vec3<f32>,
    normal: vec3<f32>,
    texcoord: vec2<f32>,
    color: vec4<f32>,
    tangent: vec4<f32>,
    boneIndices: vec4<u32>,
    boneWeights: vec4<f32>,
};`

	gpuOverlayParamsSource = `struct OverlayParams {
    color: vec4<f32>,
    intensity: f32,
};`

	gpuEffectParamsSource = `struct EffectParams {
    params: vec4<f32>,
};`

	gpuLightSource = `struct Light {
    pos: vec3<f32>,
    target: vec3<f32>,
    ambient: vec4<f32>,
    diffuse: vec4<f32>,
    specular: vec4<f32>,
    coneInner: f32,
    coneMid: f32,
    coneOuter: f32,
};`

	gpuLightHeaderSource = `struct LightHeader {
    count: u32,
    ambient: vec4<f32>,
};`

	gpuShadowDataSource = `struct ShadowData {
    matrix: mat4x4<f32>,
    far1: f32,
    far2: f32,
};`

	gpuShadowUniformSource = `struct ShadowUniform {
    matrix: mat4x4<f32>,
};`

	gpuLightCullUniformsSource = `struct LightCullUniforms {
    tileSize: u32,
    tileCountX: u32,
    tileCountY: u32,
};`

	gpuTileUniformsSource = `struct TileUniforms {
    tileSize: u32,
    maxLightsPerTile: u32,
};`

	gpuAnimationDataSource = `struct AnimationData {
    time: f32,
    frame: u32,
};`

	gpuSkeletalAnimationDataSource = `struct SkeletalAnimationData {
    boneCount: u32,
    time: f32,
};`

	gpuAnimationGlobalsSource = `struct AnimationGlobals {
    deltaTime: f32,
    globalTime: f32,
};`

	gpuFrustumPlaneSource = `struct FrustumPlane {
    normal: vec3<f32>,
    distance: f32,
};`

	gpuGlobalDataSource = `struct GlobalData {
    time: f32,
};`

	// gpuIndirectArgsSource matches WebGPU's DrawIndexedIndirect argument layout.
	gpuIndirectArgsSource = `struct IndirectArgs {
    indexCount: u32,
    instanceCount: u32,
    firstIndex: u32,
    baseVertex: i32,
    firstInstance: u32,
};`

	gpuBoneInfoSource = `struct BoneInfo {
    inverseBind: mat4x4<f32>,
    parent: i32,
};`

	// gpuInstanceDataSource matches the fixed per-instance attribute layout
	// in shaderparam.InstanceAttributeLocations.
	gpuInstanceDataSource = `struct InstanceData {
    pos: vec3<f32>,
    rot: vec4<f32>,
    scale: vec3<f32>,
    pivot: vec3<f32>,
    color: vec4<f32>,
    matids: vec4<u32>,
    texsub: vec4<f32>,
    xform: mat4x4<f32>,
};`

	gpuModelDataSource = `struct ModelData {
    xform: mat4x4<f32>,
};`
)
