//go:build stm32f4disco

package main

import (
	"runtime/volatile"
	"unsafe"
)

// Peripheral base addresses (RM0090 memory map)
const (
	tim1Base  = 0x40010000
	tim4Base  = 0x40000800
	dma2Base  = 0x40026400
	gpioeBase = 0x40021000
)

// timRegs is the register block shared by the advanced and general purpose
// timers. RCR and BDTR read as zero on TIM2..TIM5.
type timRegs struct {
	CR1   volatile.Register32
	CR2   volatile.Register32
	SMCR  volatile.Register32
	DIER  volatile.Register32
	SR    volatile.Register32
	EGR   volatile.Register32
	CCMR1 volatile.Register32
	CCMR2 volatile.Register32
	CCER  volatile.Register32
	CNT   volatile.Register32
	PSC   volatile.Register32
	ARR   volatile.Register32
	RCR   volatile.Register32
	CCR   [4]volatile.Register32
	BDTR  volatile.Register32
	DCR   volatile.Register32
	DMAR  volatile.Register32
}

const (
	timCR1_CEN  = 1 << 0
	timCR1_URS  = 1 << 2
	timCR1_OPM  = 1 << 3
	timCR1_ARPE = 1 << 7

	timDIER_UIE   = 1 << 0
	timDIER_CC1IE = 1 << 1
	timDIER_CC1DE = 1 << 9

	timSR_UIF   = 1 << 0
	timSR_CC1IF = 1 << 1

	timEGR_UG = 1 << 0
)

// dmaStream is one of the eight streams of a DMA controller.
type dmaStream struct {
	CR   volatile.Register32
	NDTR volatile.Register32
	PAR  volatile.Register32
	M0AR volatile.Register32
	M1AR volatile.Register32
	FCR  volatile.Register32
}

type dmaRegs struct {
	LISR   volatile.Register32
	HISR   volatile.Register32
	LIFCR  volatile.Register32
	HIFCR  volatile.Register32
	Stream [8]dmaStream
}

const (
	dmaCR_EN         = 1 << 0
	dmaCR_DIR_M2P    = 1 << 6
	dmaCR_CIRC       = 1 << 8
	dmaCR_MINC       = 1 << 10
	dmaCR_PSIZE_32   = 2 << 11
	dmaCR_MSIZE_32   = 2 << 13
	dmaCR_PL_HIGH    = 2 << 16
	dmaCR_CHSEL_Pos  = 25
	dmaFCR_DMDIS     = 1 << 2
	dmaFCR_FTH_FULL  = 3 << 0
	dmaStreamFlags   = 0x3D // FEIF, DMEIF, TEIF, HTIF, TCIF of stream 0
	dmaStreamFlagPos = 6    // stream 1 flags in LISR/LIFCR
)

// gpioRegs is a GPIO port; only the set/reset register is used directly,
// configuration goes through machine.Pin.
type gpioRegs struct {
	MODER   volatile.Register32
	OTYPER  volatile.Register32
	OSPEEDR volatile.Register32
	PUPDR   volatile.Register32
	IDR     volatile.Register32
	ODR     volatile.Register32
	BSRR    volatile.Register32
}

var (
	tim1  = (*timRegs)(unsafe.Pointer(uintptr(tim1Base)))
	tim4  = (*timRegs)(unsafe.Pointer(uintptr(tim4Base)))
	dma2  = (*dmaRegs)(unsafe.Pointer(uintptr(dma2Base)))
	gpioe = (*gpioRegs)(unsafe.Pointer(uintptr(gpioeBase)))
)
