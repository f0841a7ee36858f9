// Package device implements the render context on top of Vulkan.
package device

import (
	"errors"
	"fmt"
	"sync"
	"unsafe"

	vk "github.com/vulkan-go/vulkan"

	"epsilon/src/render"
)

// SurfaceProvider is the window the engine presents to.
type SurfaceProvider interface {
	InstanceProcAddr() unsafe.Pointer
	RequiredInstanceExtensions() []string
	CreateSurface(instance vk.Instance) (vk.Surface, error)
	// FramebufferSize is the drawable size in pixels; zero while minimized.
	FramebufferSize() render.Size
}

type resource uint8

const (
	resInstance resource = 1 << iota
	resSurface
	resDevice
	resSwapchain
	resPool
	resSync
)

// Engine owns the Vulkan instance, device, swapchain and the synchronization
// objects of the single frame in flight. Exported methods are safe to call
// from any goroutine but the frame loop is expected to be the only caller.
type Engine struct {
	mu       sync.Mutex
	cfg      engineConfig
	provider SurfaceProvider
	alive    resource

	instance vk.Instance
	surface  vk.Surface
	physical vk.PhysicalDevice
	memory   vk.PhysicalDeviceMemoryProperties
	device   vk.Device

	graphicsFamily uint32
	presentFamily  uint32
	graphicsQueue  vk.Queue
	presentQueue   vk.Queue

	swapchain vk.Swapchain
	format    vk.SurfaceFormat
	extent    vk.Extent2D
	images    []vk.Image
	views     []vk.ImageView
	retired   []retiredSwapchain

	pool           vk.CommandPool
	imageAvailable vk.Semaphore
	renderFinished vk.Semaphore
	inFlight       vk.Fence
}

var _ render.Context = &Engine{}

var deviceExtensions = []string{cString(vk.KhrSwapchainExtensionName)}

// New initializes Vulkan against the provider's window and creates the first
// swapchain. Anything created before a failure is destroyed again.
func New(provider SurfaceProvider, options ...EngineOption) (*Engine, error) {
	cfg := defaultConfig()
	for _, opt := range options {
		opt(&cfg)
	}
	e := &Engine{cfg: cfg, provider: provider}

	vk.SetGetInstanceProcAddr(provider.InstanceProcAddr())
	if err := vk.Init(); err != nil {
		return nil, fmt.Errorf("initializing vulkan: %w", err)
	}

	steps := []struct {
		name string
		fn   func() error
	}{
		{"creating instance", e.createInstance},
		{"creating surface", e.createSurface},
		{"picking physical device", e.pickPhysicalDevice},
		{"creating logical device", e.createLogicalDevice},
		{"creating swapchain", func() error { return e.createSwapchain(vk.NullSwapchain) }},
		{"creating command pool", e.createCommandPool},
		{"creating sync objects", e.createSyncObjects},
	}
	for _, step := range steps {
		if err := step.fn(); err != nil {
			e.destroy()
			return nil, fmt.Errorf("%s: %w", step.name, err)
		}
	}
	return e, nil
}

func (e *Engine) createInstance() error {
	var layers []string
	if e.cfg.validation {
		layer := cString(e.cfg.validationLayer)
		if !layerAvailable(layer) {
			return fmt.Errorf("validation layer %s requested but not available", e.cfg.validationLayer)
		}
		layers = append(layers, layer)
	}

	var extensions []string
	for _, ext := range e.provider.RequiredInstanceExtensions() {
		extensions = append(extensions, cString(ext))
	}

	appInfo := vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		PApplicationName:   cString(e.cfg.applicationName),
		ApplicationVersion: vk.MakeVersion(1, 0, 0),
		PEngineName:        "epsilon\x00",
		EngineVersion:      vk.MakeVersion(1, 0, 0),
		ApiVersion:         vk.ApiVersion10,
	}
	createInfo := vk.InstanceCreateInfo{
		SType:                   vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo:        &appInfo,
		EnabledExtensionCount:   uint32(len(extensions)),
		PpEnabledExtensionNames: extensions,
		EnabledLayerCount:       uint32(len(layers)),
		PpEnabledLayerNames:     layers,
	}

	var instance vk.Instance
	if err := NewError(vk.CreateInstance(&createInfo, nil, &instance)); err != nil {
		return err
	}
	if err := vk.InitInstance(instance); err != nil {
		vk.DestroyInstance(instance, nil)
		return err
	}
	e.instance = instance
	e.alive |= resInstance
	return nil
}

func layerAvailable(name string) bool {
	var count uint32
	if vk.EnumerateInstanceLayerProperties(&count, nil) != vk.Success {
		return false
	}
	layers := make([]vk.LayerProperties, count)
	if vk.EnumerateInstanceLayerProperties(&count, layers) != vk.Success {
		return false
	}
	for _, layer := range layers {
		layer.Deref()
		if cString(vk.ToString(layer.LayerName[:])) == name {
			return true
		}
	}
	return false
}

func (e *Engine) createSurface() error {
	surface, err := e.provider.CreateSurface(e.instance)
	if err != nil {
		return err
	}
	e.surface = surface
	e.alive |= resSurface
	return nil
}

type queueFamilies struct {
	graphics, present       uint32
	hasGraphics, hasPresent bool
}

func (q queueFamilies) complete() bool {
	return q.hasGraphics && q.hasPresent
}

func (e *Engine) findQueueFamilies(physical vk.PhysicalDevice) queueFamilies {
	var q queueFamilies
	var count uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(physical, &count, nil)
	families := make([]vk.QueueFamilyProperties, count)
	vk.GetPhysicalDeviceQueueFamilyProperties(physical, &count, families)

	for i, family := range families {
		family.Deref()
		if !q.hasGraphics && family.QueueFlags&vk.QueueFlags(vk.QueueGraphicsBit) != 0 {
			q.graphics, q.hasGraphics = uint32(i), true
		}
		var present vk.Bool32
		if err := NewError(vk.GetPhysicalDeviceSurfaceSupport(physical, uint32(i), e.surface, &present)); err != nil {
			render.Logger().Warn("querying surface support", "family", i, "err", err)
			continue
		}
		if !q.hasPresent && present.B() {
			q.present, q.hasPresent = uint32(i), true
		}
		if q.complete() && q.graphics == q.present {
			break
		}
	}
	return q
}

func supportsExtensions(physical vk.PhysicalDevice, required []string) bool {
	var count uint32
	if IsError(vk.EnumerateDeviceExtensionProperties(physical, "", &count, nil)) {
		return false
	}
	available := make([]vk.ExtensionProperties, count)
	if IsError(vk.EnumerateDeviceExtensionProperties(physical, "", &count, available)) {
		return false
	}
	missing := make(map[string]struct{}, len(required))
	for _, name := range required {
		missing[name] = struct{}{}
	}
	for _, ext := range available {
		ext.Deref()
		delete(missing, cString(vk.ToString(ext.ExtensionName[:])))
	}
	return len(missing) == 0
}

func (e *Engine) querySwapchainSupport(physical vk.PhysicalDevice) (swapchainSupport, error) {
	var s swapchainSupport
	if err := NewError(vk.GetPhysicalDeviceSurfaceCapabilities(physical, e.surface, &s.capabilities)); err != nil {
		return s, err
	}
	s.capabilities.Deref()
	s.capabilities.CurrentExtent.Deref()
	s.capabilities.MinImageExtent.Deref()
	s.capabilities.MaxImageExtent.Deref()

	var count uint32
	if err := NewError(vk.GetPhysicalDeviceSurfaceFormats(physical, e.surface, &count, nil)); err != nil {
		return s, err
	}
	if count > 0 {
		formats := make([]vk.SurfaceFormat, count)
		vk.GetPhysicalDeviceSurfaceFormats(physical, e.surface, &count, formats)
		for _, f := range formats {
			f.Deref()
			s.formats = append(s.formats, f)
		}
	}

	count = 0
	if err := NewError(vk.GetPhysicalDeviceSurfacePresentModes(physical, e.surface, &count, nil)); err != nil {
		return s, err
	}
	if count > 0 {
		s.presentModes = make([]vk.PresentMode, count)
		vk.GetPhysicalDeviceSurfacePresentModes(physical, e.surface, &count, s.presentModes)
	}
	return s, nil
}

func (e *Engine) pickPhysicalDevice() error {
	var count uint32
	if err := NewError(vk.EnumeratePhysicalDevices(e.instance, &count, nil)); err != nil {
		return err
	}
	if count == 0 {
		return errors.New("no GPU with Vulkan support")
	}
	devices := make([]vk.PhysicalDevice, count)
	if err := NewError(vk.EnumeratePhysicalDevices(e.instance, &count, devices)); err != nil {
		return err
	}

	var (
		best     uint32
		selected vk.PhysicalDevice
		families queueFamilies
		name     string
		kind     vk.PhysicalDeviceType
		log      = render.Logger()
	)
	for _, physical := range devices {
		var props vk.PhysicalDeviceProperties
		vk.GetPhysicalDeviceProperties(physical, &props)
		props.Deref()

		q := e.findQueueFamilies(physical)
		suitable := q.complete() && supportsExtensions(physical, deviceExtensions)
		if suitable {
			support, err := e.querySwapchainSupport(physical)
			suitable = err == nil && support.adequate()
		}
		score := deviceScore(props.DeviceType, suitable)
		log.Debug("physical device", "name", vk.ToString(props.DeviceName[:]), "score", score)

		if score > best {
			best, selected, families = score, physical, q
			name, kind = vk.ToString(props.DeviceName[:]), props.DeviceType
		}
	}
	if best == 0 {
		return errors.New("no suitable physical device")
	}

	e.physical = selected
	e.graphicsFamily, e.presentFamily = families.graphics, families.present
	vk.GetPhysicalDeviceMemoryProperties(selected, &e.memory)
	e.memory.Deref()
	log.Info("vulkan device selected", "name", name, "type", kind, "graphics_family", e.graphicsFamily, "present_family", e.presentFamily)
	return nil
}

func (e *Engine) createLogicalDevice() error {
	unique := map[uint32]struct{}{e.graphicsFamily: {}, e.presentFamily: {}}
	var queueInfos []vk.DeviceQueueCreateInfo
	for family := range unique {
		queueInfos = append(queueInfos, vk.DeviceQueueCreateInfo{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: family,
			QueueCount:       1,
			PQueuePriorities: []float32{1.0},
		})
	}

	createInfo := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueInfos)),
		PQueueCreateInfos:       queueInfos,
		PEnabledFeatures:        []vk.PhysicalDeviceFeatures{{}},
		EnabledExtensionCount:   uint32(len(deviceExtensions)),
		PpEnabledExtensionNames: deviceExtensions,
	}
	if e.cfg.validation {
		createInfo.EnabledLayerCount = 1
		createInfo.PpEnabledLayerNames = []string{cString(e.cfg.validationLayer)}
	}

	var device vk.Device
	if err := NewError(vk.CreateDevice(e.physical, &createInfo, nil, &device)); err != nil {
		return err
	}
	e.device = device
	e.alive |= resDevice

	vk.GetDeviceQueue(device, e.graphicsFamily, 0, &e.graphicsQueue)
	vk.GetDeviceQueue(device, e.presentFamily, 0, &e.presentQueue)
	return nil
}

func (e *Engine) QueueFamilyIndex() uint32 {
	return e.graphicsFamily
}

func (e *Engine) SurfaceSize() render.Size {
	return e.provider.FramebufferSize()
}

func (e *Engine) WaitIdle() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.waitIdle()
}

func (e *Engine) waitIdle() error {
	if e.alive&resDevice == 0 {
		return nil
	}
	return NewError(vk.DeviceWaitIdle(e.device))
}

// Kill destroys the swapchain, synchronization objects, command pool, device,
// surface and instance. Every object handed out must already be released.
// Calling Kill more than once is a no-op.
func (e *Engine) Kill() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.alive == 0 {
		return
	}
	if err := e.waitIdle(); err != nil {
		render.Logger().Error("waiting for device idle", "err", err)
	}
	e.destroy()
	render.Logger().Info("vulkan engine destroyed")
}

func (e *Engine) destroy() {
	if e.alive&resSync != 0 {
		vk.DestroySemaphore(e.device, e.imageAvailable, nil)
		vk.DestroySemaphore(e.device, e.renderFinished, nil)
		vk.DestroyFence(e.device, e.inFlight, nil)
	}
	if e.alive&resPool != 0 {
		vk.DestroyCommandPool(e.device, e.pool, nil)
	}
	if e.alive&resDevice != 0 {
		e.destroyRetired()
	}
	if e.alive&resSwapchain != 0 {
		e.destroyViews(e.views)
		vk.DestroySwapchain(e.device, e.swapchain, nil)
		e.views, e.images = nil, nil
	}
	if e.alive&resDevice != 0 {
		vk.DestroyDevice(e.device, nil)
	}
	if e.alive&resSurface != 0 {
		vk.DestroySurface(e.instance, e.surface, nil)
	}
	if e.alive&resInstance != 0 {
		vk.DestroyInstance(e.instance, nil)
	}
	e.alive = 0
}
